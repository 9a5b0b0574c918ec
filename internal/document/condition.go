package document

import (
	"fmt"
	"strings"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
)

// Condition is one predicate. Exactly one form is used:
//
//	{column: name, op: eq, value: x}       comparison
//	{column: tags, op: in, values: [a, b]}  membership
//	{count: books, op: gt, value: 0}        association count
//	{aggregate: {...}, op: lt, value: 5}    any association aggregate
//	{empty: books}                          association has no rows
//	{not: {...}}, {any: [...]}, {all: [...]}
type Condition struct {
	Column    string      `json:"column,omitempty"`
	Count     string      `json:"count,omitempty"`
	Aggregate *Aggregate  `json:"aggregate,omitempty"`
	Empty     string      `json:"empty,omitempty"`
	Op        string      `json:"op,omitempty"`
	Value     any         `json:"value,omitempty"`
	Values    []any       `json:"values,omitempty"`
	Not       *Condition  `json:"not,omitempty"`
	Any       []Condition `json:"any,omitempty"`
	All       []Condition `json:"all,omitempty"`
}

// Aggregate is an aggregate over an association. Fn defaults to count.
// From names the join the association starts from; the root by default.
type Aggregate struct {
	Fn          string `json:"fn,omitempty"`
	Association string `json:"association"`
	Column      string `json:"column,omitempty"`
	From        string `json:"from,omitempty"`
	As          string `json:"as,omitempty"`
}

// Order is one ORDER BY term.
type Order struct {
	Column    string     `json:"column,omitempty"`
	Count     string     `json:"count,omitempty"`
	Aggregate *Aggregate `json:"aggregate,omitempty"`
	Dir       string     `json:"dir,omitempty"`
}

// resolver turns document references into expressions.
type resolver interface {
	column(name string) (sqldsl.Col, error)
	aggregate(a Aggregate) (sqldsl.Expr, error)
}

// emptyTester is implemented by association aggregates.
type emptyTester interface {
	IsEmpty() sqldsl.Expr
}

func (c Condition) expr(r resolver) (sqldsl.Expr, error) {
	switch {
	case c.Not != nil:
		e, err := c.Not.expr(r)
		if err != nil {
			return nil, err
		}
		return sqldsl.Not(e), nil
	case len(c.Any) > 0:
		parts, err := conditions(c.Any, r)
		if err != nil {
			return nil, err
		}
		return sqldsl.Or(parts...), nil
	case len(c.All) > 0:
		parts, err := conditions(c.All, r)
		if err != nil {
			return nil, err
		}
		return sqldsl.And(parts...), nil
	case c.Empty != "":
		e, err := r.aggregate(Aggregate{Association: c.Empty})
		if err != nil {
			return nil, err
		}
		t, ok := e.(emptyTester)
		if !ok {
			return sqldsl.Eq(e, sqldsl.Int(0)), nil
		}
		return t.IsEmpty(), nil
	case c.Count != "" || c.Aggregate != nil:
		agg := Aggregate{Association: c.Count}
		if c.Aggregate != nil {
			agg = *c.Aggregate
		}
		e, err := r.aggregate(agg)
		if err != nil {
			return nil, err
		}
		return compare(e, c.Op, c.Value, c.Values, true)
	case c.Column != "":
		col, err := r.column(c.Column)
		if err != nil {
			return nil, err
		}
		return compare(col, c.Op, c.Value, c.Values, false)
	}
	return nil, fmt.Errorf("empty condition")
}

func conditions(cs []Condition, r resolver) ([]sqldsl.Expr, error) {
	out := make([]sqldsl.Expr, 0, len(cs))
	for _, c := range cs {
		e, err := c.expr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// compare builds "left op value". Aggregate thresholds that are numbers are
// rendered inline; every other value is bound.
func compare(left sqldsl.Expr, op string, value any, values []any, inline bool) (sqldsl.Expr, error) {
	v, err := scalar(value)
	if err != nil {
		return nil, err
	}
	right := sqldsl.Value(v)
	if inline && isNumber(v) {
		right = sqldsl.Const(v)
	}

	switch strings.ToLower(op) {
	case "", "eq", "=":
		return sqldsl.Eq(left, right), nil
	case "ne", "!=", "<>":
		return sqldsl.Ne(left, right), nil
	case "lt", "<":
		return sqldsl.Lt(left, right), nil
	case "lte", "<=":
		return sqldsl.Lte(left, right), nil
	case "gt", ">":
		return sqldsl.Gt(left, right), nil
	case "gte", ">=":
		return sqldsl.Gte(left, right), nil
	case "like":
		return sqldsl.Like(left, right), nil
	case "isnull", "null":
		return sqldsl.IsNull{Expr: left}, nil
	case "notnull", "isnotnull":
		return sqldsl.IsNotNull{Expr: left}, nil
	case "in":
		bound := make([]sqldsl.Expr, len(values))
		for i, x := range values {
			s, err := scalar(x)
			if err != nil {
				return nil, err
			}
			bound[i] = sqldsl.Value(s)
		}
		return sqldsl.In(left, bound...), nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func (o Order) term(r resolver) (sqldsl.OrderTerm, error) {
	var e sqldsl.Expr
	switch {
	case o.Count != "" || o.Aggregate != nil:
		agg := Aggregate{Association: o.Count}
		if o.Aggregate != nil {
			agg = *o.Aggregate
		}
		var err error
		if e, err = r.aggregate(agg); err != nil {
			return sqldsl.OrderTerm{}, err
		}
	case o.Column != "":
		col, err := r.column(o.Column)
		if err != nil {
			return sqldsl.OrderTerm{}, err
		}
		e = col
	default:
		return sqldsl.OrderTerm{}, fmt.Errorf("empty order term")
	}

	switch strings.ToLower(o.Dir) {
	case "":
		return sqldsl.OrderBy(e), nil
	case "asc":
		return sqldsl.Asc(e), nil
	case "desc":
		return sqldsl.Desc(e), nil
	}
	return sqldsl.OrderTerm{}, fmt.Errorf("unknown order direction %q", o.Dir)
}
