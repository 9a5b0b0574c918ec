package sqlgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

// ForInstance plans the rows assoc matches for one origin row, identified
// by the values of its key columns.
//
// The origin table never appears in the statement: its key values are
// folded into the SQL as literals. For a direct association the plan reads
//
//	SELECT "t".* FROM "t" WHERE ("t"."fk" = <value>)
//
// For a through association the plan selects from the final target and
// joins the pivots backwards, folding the values into the join that
// introduces the first pivot:
//
//	SELECT "books".* FROM "books"
//	JOIN "libraries" ON (("libraries"."id" = "books"."libraryId") AND ("libraries"."id" = 1))
//
// A nil value renders IS NULL and still produces a statement. reg is used by
// AttachNamed on the returned plan and may be nil.
func ForInstance(reg *schema.Registry, assoc *schema.Association, values map[string]any) (*Plan, error) {
	if assoc == nil {
		return nil, fmt.Errorf("%w: nil association", schema.ErrUnknownAssociation)
	}
	hops := assoc.Hops()
	last := hops[len(hops)-1]
	root := sqldsl.Table(last.Target().Name)
	p := newPlan(reg, last.Target(), root)

	origin := sqldsl.Table(assoc.Origin().Name)
	fold := folder{origin: origin, values: values}

	if !assoc.IsThrough() {
		p.scope.Predicates = append(p.scope.Predicates, sqldsl.Conjuncts(fold.keys(assoc, root))...)
		if cond := assoc.Condition(); cond != nil {
			p.scope.Predicates = append(p.scope.Predicates, sqldsl.Conjuncts(fold.expr(cond(origin, root)))...)
		}
		p.scope.Predicates = append(p.scope.Predicates, bindAll(assoc.Filters(), root)...)
		p.scope.Order = bindOrder(assoc.Ordering(), root)
		if err := fold.err(); err != nil {
			return nil, err
		}
		return p, nil
	}

	// Join hop k's origin for k = n..2, each time from the occurrence that
	// hop k leads to.
	prev := root
	for k := len(hops) - 1; k >= 1; k-- {
		hop := hops[k]
		ref := sqldsl.Table(hop.Origin().Name)
		p.register(ref, hop.Origin())

		on := []sqldsl.Expr{reverseCondition(hop, ref, prev)}
		if k == 1 {
			first := hops[0]
			on = append(on, fold.keys(first, ref))
			if cond := first.Condition(); cond != nil {
				on = append(on, fold.expr(cond(origin, ref)))
			}
		}
		on = append(on, bindAll(hops[k-1].Filters(), ref)...)

		p.joins = append(p.joins, &JoinNode{
			Kind:   sqldsl.InnerJoin,
			Ref:    ref,
			Table:  hop.Origin(),
			On:     sqldsl.And(on...),
			Scope:  Scope{Ref: ref, Order: bindOrder(hops[k-1].Ordering(), ref)},
			Pivot:  true,
			Parent: prev,
		})
		prev = ref
	}

	p.scope.Predicates = append(p.scope.Predicates, bindAll(last.Filters(), root)...)
	p.scope.Predicates = append(p.scope.Predicates, bindAll(assoc.Filters(), root)...)
	p.scope.Order = append(bindOrder(last.Ordering(), root), bindOrder(assoc.Ordering(), root)...)
	if err := fold.err(); err != nil {
		return nil, err
	}
	return p, nil
}

// reverseCondition renders hop's join condition when its origin is the
// joined table: the origin column goes on the left.
func reverseCondition(hop *schema.Association, origin, target *sqldsl.TableRef) sqldsl.Expr {
	parts := make([]sqldsl.Expr, 0, len(hop.Mapping())+1)
	for _, kp := range hop.Mapping() {
		parts = append(parts, sqldsl.Eq(origin.Col(kp.Origin), target.Col(kp.Target)))
	}
	if cond := hop.Condition(); cond != nil {
		parts = append(parts, cond(origin, target))
	}
	return sqldsl.And(parts...)
}

// folder replaces origin columns with the instance's key values.
type folder struct {
	origin  *sqldsl.TableRef
	values  map[string]any
	missing []string
}

// keys renders target = value for every key pair of hop.
func (f *folder) keys(hop *schema.Association, target *sqldsl.TableRef) sqldsl.Expr {
	parts := make([]sqldsl.Expr, 0, len(hop.Mapping()))
	for _, kp := range hop.Mapping() {
		parts = append(parts, sqldsl.Eq(target.Col(kp.Target), f.value(kp.Origin)))
	}
	return sqldsl.And(parts...)
}

// expr folds every origin column of e.
func (f *folder) expr(e sqldsl.Expr) sqldsl.Expr {
	return sqldsl.TransformUp(e, func(n sqldsl.Expr) sqldsl.Expr {
		if c, ok := n.(sqldsl.Col); ok && c.Table == f.origin {
			return f.value(c.Column)
		}
		return n
	})
}

func (f *folder) value(column string) sqldsl.Expr {
	v, ok := f.values[column]
	if !ok {
		f.missing = append(f.missing, column)
		return sqldsl.Null{}
	}
	return sqldsl.Const(v)
}

func (f *folder) err() error {
	if len(f.missing) == 0 {
		return nil
	}
	sort.Strings(f.missing)
	return fmt.Errorf("%w: %s", schema.ErrMissingKeyValue, strings.Join(f.missing, ", "))
}
