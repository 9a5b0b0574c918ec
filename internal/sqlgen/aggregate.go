package sqlgen

import (
	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

// AssociationAggregate is an aggregate computed over the rows an
// association matches, such as the number of books of each author.
//
// It is an expression: it can be selected through Annotate, compared and
// passed to Filter (the comparison is routed to HAVING), or used in Order.
// The plan joins the association with a left join when the aggregate is
// first used, and groups by the root key.
type AssociationAggregate struct {
	assoc  *schema.Association
	parent *sqldsl.TableRef
	fn     string
	column string
	label  string
}

// Count counts the rows matched by assoc.
func Count(assoc *schema.Association) *AssociationAggregate {
	return &AssociationAggregate{assoc: assoc, fn: "COUNT"}
}

// Sum sums column over the rows matched by assoc.
func Sum(assoc *schema.Association, column string) *AssociationAggregate {
	return &AssociationAggregate{assoc: assoc, fn: "SUM", column: column}
}

// Avg averages column over the rows matched by assoc.
func Avg(assoc *schema.Association, column string) *AssociationAggregate {
	return &AssociationAggregate{assoc: assoc, fn: "AVG", column: column}
}

// Min returns the smallest value of column over the rows matched by assoc.
func Min(assoc *schema.Association, column string) *AssociationAggregate {
	return &AssociationAggregate{assoc: assoc, fn: "MIN", column: column}
}

// Max returns the largest value of column over the rows matched by assoc.
func Max(assoc *schema.Association, column string) *AssociationAggregate {
	return &AssociationAggregate{assoc: assoc, fn: "MAX", column: column}
}

// As labels the aggregate in the select list.
func (a *AssociationAggregate) As(label string) *AssociationAggregate {
	c := *a
	c.label = label
	return &c
}

// From aggregates from parent instead of the plan root.
func (a *AssociationAggregate) From(parent *sqldsl.TableRef) *AssociationAggregate {
	c := *a
	c.parent = parent
	return &c
}

// Association returns the aggregated association.
func (a *AssociationAggregate) Association() *schema.Association { return a.assoc }

// Label returns the select list label, if any.
func (a *AssociationAggregate) Label() string { return a.label }

// aggregateColumn returns the target column the function applies to: the
// configured column, or the target's row key for COUNT.
func (a *AssociationAggregate) aggregateColumn() string {
	if a.column != "" {
		return a.column
	}
	return a.assoc.Target().RowKey()[0]
}

// expr builds the aggregate over the occurrence ref.
func (a *AssociationAggregate) expr(ref *sqldsl.TableRef) sqldsl.Aggregate {
	return sqldsl.Aggregate{Func: a.fn, Arg: ref.Col(a.aggregateColumn())}
}

// SQL renders the aggregate against the unaliased target table. Plans
// replace it with the aggregate over the joined occurrence.
func (a *AssociationAggregate) SQL() string {
	return a.expr(sqldsl.Table(a.assoc.Target().Name)).SQL()
}

func (a *AssociationAggregate) Args() []any { return nil }
func (a *AssociationAggregate) Children() []sqldsl.Expr { return nil }
func (a *AssociationAggregate) WithChildren(...sqldsl.Expr) sqldsl.Expr { return a }

// IsAggregate routes predicates over the aggregate to HAVING.
func (a *AssociationAggregate) IsAggregate() bool { return true }

// Eq returns aggregate = v. Numeric thresholds are rendered inline; other
// values are bound.
func (a *AssociationAggregate) Eq(v any) sqldsl.Expr { return sqldsl.Eq(a, threshold(v)) }

// Ne returns aggregate <> v.
func (a *AssociationAggregate) Ne(v any) sqldsl.Expr { return sqldsl.Ne(a, threshold(v)) }

// Gt returns aggregate > v.
func (a *AssociationAggregate) Gt(v any) sqldsl.Expr { return sqldsl.Gt(a, threshold(v)) }

// Gte returns aggregate >= v.
func (a *AssociationAggregate) Gte(v any) sqldsl.Expr { return sqldsl.Gte(a, threshold(v)) }

// Lt returns aggregate < v.
func (a *AssociationAggregate) Lt(v any) sqldsl.Expr { return sqldsl.Lt(a, threshold(v)) }

// Lte returns aggregate <= v.
func (a *AssociationAggregate) Lte(v any) sqldsl.Expr { return sqldsl.Lte(a, threshold(v)) }

// IsEmpty is true when the association matches no row: COUNT(key) = 0.
// Its negation renders COUNT(key) <> 0.
func (a *AssociationAggregate) IsEmpty() sqldsl.Expr {
	c := *a
	c.fn = "COUNT"
	c.column = ""
	return sqldsl.Eq(&c, sqldsl.Int(0))
}

// Asc orders by the aggregate ascending.
func (a *AssociationAggregate) Asc() sqldsl.OrderTerm { return sqldsl.Asc(a) }

// Desc orders by the aggregate descending.
func (a *AssociationAggregate) Desc() sqldsl.OrderTerm { return sqldsl.Desc(a) }

// threshold renders numbers inline and binds everything else.
func threshold(v any) sqldsl.Expr {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return sqldsl.Const(v)
	}
	return sqldsl.Value(v)
}

// resolve replaces association aggregates in e with aggregates over their
// joined occurrences, attaching the joins on first use.
func (p *Plan) resolve(e sqldsl.Expr) (sqldsl.Expr, error) {
	var err error
	out := sqldsl.TransformUp(e, func(n sqldsl.Expr) sqldsl.Expr {
		agg, ok := n.(*AssociationAggregate)
		if !ok || err != nil {
			return n
		}
		var ref *sqldsl.TableRef
		ref, err = p.attachAggregate(agg.parent, agg.assoc)
		if err != nil {
			return n
		}
		p.aggregated = true
		return agg.expr(ref)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Annotate appends aggregates to the select list, in declaration order.
func (p *Plan) Annotate(aggs ...*AssociationAggregate) error {
	for _, a := range aggs {
		ref, err := p.attachAggregate(a.parent, a.assoc)
		if err != nil {
			return err
		}
		p.aggregated = true
		var e sqldsl.Expr = a.expr(ref)
		if a.label != "" {
			e = sqldsl.As(e, a.label)
		}
		p.annotations = append(p.annotations, annotation{expr: e, label: a.label, ref: ref})
	}
	return nil
}
