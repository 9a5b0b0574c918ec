// Package sqlgen compiles association-aware requests into SQL.
//
// # Overview
//
// A Plan starts from a root table of a schema.Registry. Associations are
// attached to it, filters and orders are recorded against table
// occurrences, and aggregates over associations are annotated or filtered
// on. Build renders the plan into one canonical statement:
//
//	SELECT <select-list> FROM <root> <joins> [WHERE] [GROUP BY] [HAVING] [ORDER BY] [LIMIT]
//
// # Phases
//
//  1. Planning: Attach turns an association into join nodes, one per hop of
//     a through chain, and assigns aliases when a table occurs twice.
//  2. Derivation: Filter, Order and friends bind bare columns to the scope
//     they are recorded on at call time and route aggregate predicates to
//     HAVING.
//  3. Rendering: Build walks the plan through the sqldsl expression algebra.
//
// # Determinism
//
// Rendering depends only on the plan content, never on the order in which
// root-only filters and attachments were recorded:
//
//   - join clauses render in attachment order
//   - root predicates render before predicates recorded on joins
//   - request-level order terms render before association orderings
//
// Aliases are assigned at attachment: the first unaliased occurrence of a
// table keeps its name until a second one arrives, then they become
// "<t>1", "<t>2"... Columns recorded earlier follow the rename because they
// reference the occurrence, not its name.
//
// # Instance Resolution
//
// ForInstance plans the rows an association matches for one known origin
// row. Origin key values are folded into the statement as literals, and
// through chains are joined backwards from the final target.
//
// # Concurrency
//
// Plans are single-goroutine values. Registries and associations are
// immutable and may be shared by any number of concurrent compilations.
package sqlgen
