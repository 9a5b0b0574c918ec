package sqlgen

import (
	"fmt"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

// Scope is the filter and order state owned by one table occurrence.
type Scope struct {
	Ref        *sqldsl.TableRef
	Predicates []sqldsl.Expr
	Order      []sqldsl.OrderTerm
}

// JoinNode is one join step of a plan.
type JoinNode struct {
	Kind  sqldsl.JoinType
	Ref   *sqldsl.TableRef
	Table *schema.Table
	On    sqldsl.Expr

	// Scope holds predicates recorded through FilterOn (rendered in WHERE)
	// and the association's own ordering.
	Scope Scope

	// Selected joins contribute "<t>".* to the select list. Pivot joins of
	// through associations are never selected.
	Selected bool
	Pivot    bool

	// Parent is the occurrence this join hangs off.
	Parent *sqldsl.TableRef
}

// annotation is one aggregate appended to the select list.
type annotation struct {
	expr  sqldsl.Expr
	label string
	ref   *sqldsl.TableRef
}

// reuseKey identifies a Left join made for an aggregate so that further
// aggregates over the same association share it.
type reuseKey struct {
	parent *sqldsl.TableRef
	assoc  *schema.Association
}

// Plan is the in-memory form of one query before rendering.
//
// A Plan is built by one goroutine and discarded after Build. The registry
// and associations it references are shared and never modified.
type Plan struct {
	registry *schema.Registry
	table    *schema.Table
	root     *sqldsl.TableRef
	scope    Scope
	joins    []*JoinNode

	// tables maps every occurrence in the plan to its schema.
	tables map[*sqldsl.TableRef]*schema.Table

	order       []sqldsl.OrderTerm
	groupBy     []sqldsl.Expr
	having      []sqldsl.Expr
	selects     []sqldsl.Expr
	annotations []annotation
	aggregated  bool
	limit       int
	offset      int

	aliasSeq map[string]int
	reused   map[reuseKey]*sqldsl.TableRef
}

// NewPlan starts a plan selecting from table.
func NewPlan(reg *schema.Registry, table string) (*Plan, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: no registry to resolve %q", schema.ErrInvalidTable, table)
	}
	t, ok := reg.Table(table)
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", schema.ErrInvalidTable, table)
	}
	return newPlan(reg, t, sqldsl.Table(t.Name)), nil
}

// NewPlanAs starts a plan selecting from table under an explicit alias.
func NewPlanAs(reg *schema.Registry, table, alias string) (*Plan, error) {
	p, err := NewPlan(reg, table)
	if err != nil {
		return nil, err
	}
	ref := sqldsl.TableAs(p.table.Name, alias)
	delete(p.tables, p.root)
	p.root = ref
	p.scope.Ref = ref
	p.tables[ref] = p.table
	return p, nil
}

func newPlan(reg *schema.Registry, t *schema.Table, root *sqldsl.TableRef) *Plan {
	return &Plan{
		registry: reg,
		table:    t,
		root:     root,
		scope:    Scope{Ref: root},
		tables:   map[*sqldsl.TableRef]*schema.Table{root: t},
		aliasSeq: make(map[string]int),
		reused:   make(map[reuseKey]*sqldsl.TableRef),
	}
}

// Root returns the root table occurrence.
func (p *Plan) Root() *sqldsl.TableRef { return p.root }

// Table returns the root table schema.
func (p *Plan) Table() *schema.Table { return p.table }

// Joins returns the join nodes in attachment order.
func (p *Plan) Joins() []*JoinNode { return p.joins }

// refs returns every occurrence in the plan, root first.
func (p *Plan) refs() []*sqldsl.TableRef {
	out := make([]*sqldsl.TableRef, 0, len(p.joins)+1)
	out = append(out, p.root)
	for _, j := range p.joins {
		out = append(out, j.Ref)
	}
	return out
}

// owns reports whether ref is an occurrence of this plan.
func (p *Plan) owns(ref *sqldsl.TableRef) bool {
	_, ok := p.tables[ref]
	return ok
}
