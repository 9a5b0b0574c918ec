package sqldsl

import (
	"strings"
)

// Op is a binary comparison operator.
type Op string

// Comparison operators
const (
	OpEq   Op = "="
	OpNe   Op = "<>"
	OpLt   Op = "<"
	OpLte  Op = "<="
	OpGt   Op = ">"
	OpGte  Op = ">="
	OpLike Op = "LIKE"
)

// Comparison represents a binary comparison such as ("a"."id" = ?).
type Comparison struct {
	Op    Op
	Left  Expr
	Right Expr
}

// SQL renders the comparison wrapped in parentheses.
func (c Comparison) SQL() string {
	return "(" + c.Left.SQL() + " " + string(c.Op) + " " + c.Right.SQL() + ")"
}

func (c Comparison) Args() []any { return collectArgs(c.Left, c.Right) }
func (c Comparison) Children() []Expr { return []Expr{c.Left, c.Right} }
func (c Comparison) WithChildren(children ...Expr) Expr {
	return Compare(c.Op, children[0], children[1])
}

// Compare builds a comparison. Equality and inequality against NULL (or a
// bound nil) become IS NULL / IS NOT NULL instead of "= NULL".
func Compare(op Op, left, right Expr) Expr {
	if op == OpEq || op == OpNe {
		if isNull(left) && !isNull(right) {
			left, right = right, left
		}
		if isNull(right) {
			if op == OpEq {
				return IsNull{Expr: left}
			}
			return IsNotNull{Expr: left}
		}
	}
	return Comparison{Op: op, Left: left, Right: right}
}

// Eq represents an equality comparison (=).
func Eq(left, right Expr) Expr { return Compare(OpEq, left, right) }

// Ne represents a not-equal comparison (<>).
func Ne(left, right Expr) Expr { return Compare(OpNe, left, right) }

// Lt represents a less-than comparison (<).
func Lt(left, right Expr) Expr { return Compare(OpLt, left, right) }

// Lte represents a less-than-or-equal comparison (<=).
func Lte(left, right Expr) Expr { return Compare(OpLte, left, right) }

// Gt represents a greater-than comparison (>).
func Gt(left, right Expr) Expr { return Compare(OpGt, left, right) }

// Gte represents a greater-than-or-equal comparison (>=).
func Gte(left, right Expr) Expr { return Compare(OpGte, left, right) }

// Like represents a LIKE pattern match.
func Like(left, pattern Expr) Expr { return Compare(OpLike, left, pattern) }

// InExpr represents an IN clause.
type InExpr struct {
	Expr   Expr
	Values []Expr
}

// In creates an IN expression.
func In(e Expr, values ...Expr) InExpr {
	return InExpr{Expr: e, Values: values}
}

// SQL renders the IN clause. An empty list never matches.
func (i InExpr) SQL() string {
	if len(i.Values) == 0 {
		return "(1 = 0)"
	}
	parts := make([]string, len(i.Values))
	for n, v := range i.Values {
		parts[n] = v.SQL()
	}
	return "(" + i.Expr.SQL() + " IN (" + strings.Join(parts, ", ") + "))"
}

func (i InExpr) Args() []any {
	if len(i.Values) == 0 {
		return nil
	}
	return append(i.Expr.Args(), collectArgs(i.Values...)...)
}

func (i InExpr) Children() []Expr { return append([]Expr{i.Expr}, i.Values...) }
func (i InExpr) WithChildren(children ...Expr) Expr {
	return InExpr{Expr: children[0], Values: children[1:]}
}

// Logical operators

// filterNilExprs removes nil expressions from the slice.
func filterNilExprs(exprs []Expr) []Expr {
	filtered := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// joinExprs renders expressions joined by a separator, wrapped in parentheses if more than one.
func joinExprs(exprs []Expr, sep string) string {
	switch len(exprs) {
	case 0:
		return ""
	case 1:
		return exprs[0].SQL()
	default:
		parts := make([]string, len(exprs))
		for i, e := range exprs {
			parts[i] = e.SQL()
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
}

// AndExpr represents a logical AND of multiple expressions.
type AndExpr struct {
	Exprs []Expr
}

func (a AndExpr) SQL() string { return joinExprs(a.Exprs, " AND ") }
func (a AndExpr) Args() []any { return collectArgs(a.Exprs...) }
func (a AndExpr) Children() []Expr { return a.Exprs }
func (a AndExpr) WithChildren(children ...Expr) Expr {
	return And(children...)
}

// And combines expressions with AND. Nested conjunctions are flattened so
// grouping never changes the rendered text. It returns nil when no
// expressions remain and the single expression unchanged when one does.
func And(exprs ...Expr) Expr {
	var flat []Expr
	for _, e := range filterNilExprs(exprs) {
		if inner, ok := e.(AndExpr); ok {
			flat = append(flat, inner.Exprs...)
			continue
		}
		flat = append(flat, e)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return AndExpr{Exprs: flat}
}

// OrExpr represents a logical OR of multiple expressions.
type OrExpr struct {
	Exprs []Expr
}

func (o OrExpr) SQL() string { return joinExprs(o.Exprs, " OR ") }
func (o OrExpr) Args() []any { return collectArgs(o.Exprs...) }
func (o OrExpr) Children() []Expr { return o.Exprs }
func (o OrExpr) WithChildren(children ...Expr) Expr {
	return Or(children...)
}

// Or combines expressions with OR, flattening nested disjunctions.
// Like And, it returns nil for no expressions.
func Or(exprs ...Expr) Expr {
	var flat []Expr
	for _, e := range filterNilExprs(exprs) {
		if inner, ok := e.(OrExpr); ok {
			flat = append(flat, inner.Exprs...)
			continue
		}
		flat = append(flat, e)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return OrExpr{Exprs: flat}
}

// NotExpr represents a logical NOT of an expression.
type NotExpr struct {
	Expr Expr
}

func (n NotExpr) SQL() string { return "(NOT " + n.Expr.SQL() + ")" }
func (n NotExpr) Args() []any { return n.Expr.Args() }
func (n NotExpr) Children() []Expr { return []Expr{n.Expr} }
func (n NotExpr) WithChildren(children ...Expr) Expr {
	return NotExpr{Expr: children[0]}
}

// Not negates an expression. Equality flips to inequality and IS NULL to
// IS NOT NULL (and back), so !isEmpty renders COUNT(..) <> 0 rather than
// NOT (COUNT(..) = 0). Double negation cancels.
func Not(e Expr) Expr {
	switch x := e.(type) {
	case Comparison:
		switch x.Op {
		case OpEq:
			return Comparison{Op: OpNe, Left: x.Left, Right: x.Right}
		case OpNe:
			return Comparison{Op: OpEq, Left: x.Left, Right: x.Right}
		}
	case IsNull:
		return IsNotNull(x)
	case IsNotNull:
		return IsNull(x)
	case NotExpr:
		return x.Expr
	}
	return NotExpr{Expr: e}
}

// IsNull represents IS NULL check.
type IsNull struct {
	Expr Expr
}

func (i IsNull) SQL() string { return "(" + i.Expr.SQL() + " IS NULL)" }
func (i IsNull) Args() []any { return i.Expr.Args() }
func (i IsNull) Children() []Expr { return []Expr{i.Expr} }
func (i IsNull) WithChildren(children ...Expr) Expr {
	return IsNull{Expr: children[0]}
}

// IsNotNull represents IS NOT NULL check.
type IsNotNull struct {
	Expr Expr
}

func (i IsNotNull) SQL() string { return "(" + i.Expr.SQL() + " IS NOT NULL)" }
func (i IsNotNull) Args() []any { return i.Expr.Args() }
func (i IsNotNull) Children() []Expr { return []Expr{i.Expr} }
func (i IsNotNull) WithChildren(children ...Expr) Expr {
	return IsNotNull{Expr: children[0]}
}

// Direction is an ORDER BY direction.
type Direction int

const (
	// DirDefault renders no direction keyword.
	DirDefault Direction = iota
	DirAsc
	DirDesc
)

// OrderTerm is one ORDER BY item.
type OrderTerm struct {
	Expr Expr
	Dir  Direction
}

// Asc orders by e ascending.
func Asc(e Expr) OrderTerm { return OrderTerm{Expr: e, Dir: DirAsc} }

// Desc orders by e descending.
func Desc(e Expr) OrderTerm { return OrderTerm{Expr: e, Dir: DirDesc} }

// OrderBy orders by e without an explicit direction.
func OrderBy(e Expr) OrderTerm { return OrderTerm{Expr: e} }

// SQL renders the order term.
func (o OrderTerm) SQL() string {
	switch o.Dir {
	case DirAsc:
		return o.Expr.SQL() + " ASC"
	case DirDesc:
		return o.Expr.SQL() + " DESC"
	}
	return o.Expr.SQL()
}

// Reversed flips the direction; a default direction becomes DESC.
func (o OrderTerm) Reversed() OrderTerm {
	if o.Dir == DirDesc {
		return OrderTerm{Expr: o.Expr, Dir: DirAsc}
	}
	return OrderTerm{Expr: o.Expr, Dir: DirDesc}
}
