// Package sqldsl provides the typed SQL expression algebra used by the relq compiler.
//
// # Overview
//
// Rather than constructing SQL strings through concatenation, the compiler
// builds immutable expression trees that render themselves. Rendering is
// deterministic: the same tree always produces the same text, and the
// arguments of every bound value are returned in placeholder order.
//
// # Core Interface
//
// Every expression implements Expr:
//
//	SQL() string                        // rendered text
//	Args() []any                        // bound values, in placeholder order
//	Children() []Expr                   // sub-expressions
//	WithChildren(...Expr) Expr          // rebuild with new sub-expressions
//
// # Expression Types
//
// Basic expressions:
//
//	Column("name")                      // bare column: "name"
//	books.Col("title")                  // bound column: "books"."title"
//	Bind{Value: 42}                     // placeholder: ?
//	Const("FR")                         // folded literal: 'FR'
//	Int(0), Bool(true), Null{}          // literals
//	Count(books.Col("id"))              // COUNT("books"."id")
//
// Operators (composites are always parenthesised):
//
//	Eq(a, b)                            // (a = b)
//	Eq(a, Null{})                       // (a IS NULL)
//	And(p, q)                           // ((p) AND (q)), flattened
//	Not(Eq(a, b))                       // (a <> b)
//
// # Table Occurrences
//
// TableRef is one occurrence of a table. Columns keep a pointer to their
// occurrence, so when the planner later assigns an alias to an occurrence,
// every column recorded against it renders with the new qualifier.
//
// # Statements
//
// SelectStmt renders a single-line SELECT with joins, WHERE, GROUP BY,
// HAVING, ORDER BY and LIMIT clauses. Identifiers are always double-quoted.
package sqldsl
