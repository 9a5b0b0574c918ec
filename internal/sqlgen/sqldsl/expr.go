package sqldsl

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Expr is the interface that all SQL expression types implement.
//
// Args returns the bound values in the order their placeholders appear in
// SQL. Children and WithChildren expose the tree to TransformUp; leaves
// return nil and themselves.
type Expr interface {
	SQL() string
	Args() []any
	Children() []Expr
	WithChildren(children ...Expr) Expr
}

// Ident quotes an identifier with double quotes, doubling embedded quotes.
func Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// leaf provides the tree methods for expressions without children.
type leaf struct{}

func (leaf) Args() []any { return nil }
func (leaf) Children() []Expr { return nil }

// Col represents a column reference. A Col with a nil Table is bare: it
// renders unqualified until BindColumns attaches it to a table occurrence.
type Col struct {
	leaf
	Table  *TableRef
	Column string
}

// Column creates a bare column reference.
func Column(name string) Col {
	return Col{Column: name}
}

// SQL renders the column reference.
func (c Col) SQL() string {
	if c.Table == nil {
		return Ident(c.Column)
	}
	return Ident(c.Table.Qualifier()) + "." + Ident(c.Column)
}

func (c Col) WithChildren(...Expr) Expr { return c }

// Bound reports whether the column is attached to a table occurrence.
func (c Col) Bound() bool { return c.Table != nil }

// Eq returns c = v. Plain Go values are bound as arguments.
func (c Col) Eq(v any) Expr { return Eq(c, Value(v)) }

// Ne returns c <> v.
func (c Col) Ne(v any) Expr { return Ne(c, Value(v)) }

// Lt returns c < v.
func (c Col) Lt(v any) Expr { return Lt(c, Value(v)) }

// Lte returns c <= v.
func (c Col) Lte(v any) Expr { return Lte(c, Value(v)) }

// Gt returns c > v.
func (c Col) Gt(v any) Expr { return Gt(c, Value(v)) }

// Gte returns c >= v.
func (c Col) Gte(v any) Expr { return Gte(c, Value(v)) }

// Like returns c LIKE v.
func (c Col) Like(pattern any) Expr { return Like(c, Value(pattern)) }

// In returns c IN (vs...).
func (c Col) In(vs ...any) Expr {
	exprs := make([]Expr, len(vs))
	for i, v := range vs {
		exprs[i] = Value(v)
	}
	return In(c, exprs...)
}

// IsNull returns c IS NULL.
func (c Col) IsNull() Expr { return IsNull{Expr: c} }

// IsNotNull returns c IS NOT NULL.
func (c Col) IsNotNull() Expr { return IsNotNull{Expr: c} }

// Asc orders by the column ascending.
func (c Col) Asc() OrderTerm { return OrderTerm{Expr: c, Dir: DirAsc} }

// Desc orders by the column descending.
func (c Col) Desc() OrderTerm { return OrderTerm{Expr: c, Dir: DirDesc} }

// Star represents "table".* in a select list.
type Star struct {
	leaf
	Table *TableRef
}

// SQL renders the qualified wildcard.
func (s Star) SQL() string {
	if s.Table == nil {
		return "*"
	}
	return Ident(s.Table.Qualifier()) + ".*"
}

func (s Star) WithChildren(...Expr) Expr { return s }

// Bind is an externally supplied value. It renders as a positional
// placeholder and contributes its value to Args.
type Bind struct {
	Value any
}

// SQL renders the placeholder.
func (Bind) SQL() string { return "?" }
func (b Bind) Args() []any { return []any{b.Value} }
func (Bind) Children() []Expr { return nil }
func (b Bind) WithChildren(...Expr) Expr { return b }

// Value turns v into an expression: expressions are returned unchanged,
// anything else is bound as an argument.
func Value(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Bind{Value: v}
}

// Lit represents a literal string value (auto-quoted with single quotes).
type Lit string

// SQL renders the literal with single quotes.
func (l Lit) SQL() string {
	// Escape single quotes by doubling them
	escaped := strings.ReplaceAll(string(l), "'", "''")
	return "'" + escaped + "'"
}

func (Lit) Args() []any { return nil }
func (Lit) Children() []Expr { return nil }
func (l Lit) WithChildren(...Expr) Expr { return l }

// Int represents an integer literal.
type Int int64

// SQL renders the integer.
func (i Int) SQL() string { return strconv.FormatInt(int64(i), 10) }
func (Int) Args() []any { return nil }
func (Int) Children() []Expr { return nil }
func (i Int) WithChildren(...Expr) Expr { return i }

// Uint represents an unsigned integer literal.
type Uint uint64

// SQL renders the integer.
func (u Uint) SQL() string { return strconv.FormatUint(uint64(u), 10) }
func (Uint) Args() []any { return nil }
func (Uint) Children() []Expr { return nil }
func (u Uint) WithChildren(...Expr) Expr { return u }

// Float represents a floating point literal.
type Float float64

// SQL renders the float in its shortest exact form.
func (f Float) SQL() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (Float) Args() []any { return nil }
func (Float) Children() []Expr { return nil }
func (f Float) WithChildren(...Expr) Expr { return f }

// Bool represents a boolean literal.
type Bool bool

// SQL renders the boolean.
func (b Bool) SQL() string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (Bool) Args() []any { return nil }
func (Bool) Children() []Expr { return nil }
func (b Bool) WithChildren(...Expr) Expr { return b }

// Blob represents a binary literal rendered as X'..'.
type Blob []byte

// SQL renders the hex literal.
func (b Blob) SQL() string { return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'" }
func (Blob) Args() []any { return nil }
func (Blob) Children() []Expr { return nil }
func (b Blob) WithChildren(...Expr) Expr { return b }

// Null represents SQL NULL.
type Null struct{ leaf }

// SQL renders NULL.
func (Null) SQL() string { return "NULL" }
func (n Null) WithChildren(...Expr) Expr { return n }

// Raw is an escape hatch for arbitrary SQL expressions.
type Raw string

// SQL renders the raw SQL as-is.
func (r Raw) SQL() string { return string(r) }
func (Raw) Args() []any { return nil }
func (Raw) Children() []Expr { return nil }
func (r Raw) WithChildren(...Expr) Expr { return r }

// Const folds a Go value into literal SQL text. It is reserved for values
// the compiler itself owns, such as instance key values; caller-supplied
// values go through Bind.
func Const(v any) Expr {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Expr:
		return x
	case string:
		return Lit(x)
	case []byte:
		if x == nil {
			return Null{}
		}
		return Blob(x)
	case bool:
		return Bool(x)
	case int:
		return Int(x)
	case int8:
		return Int(x)
	case int16:
		return Int(x)
	case int32:
		return Int(x)
	case int64:
		return Int(x)
	case uint:
		return Uint(x)
	case uint8:
		return Uint(x)
	case uint16:
		return Uint(x)
	case uint32:
		return Uint(x)
	case uint64:
		return Uint(x)
	case float32:
		return Float(x)
	case float64:
		return Float(x)
	case fmt.Stringer:
		return Lit(x.String())
	default:
		return Lit(fmt.Sprint(x))
	}
}

// isNull reports whether e is a NULL literal or a bound nil.
func isNull(e Expr) bool {
	switch x := e.(type) {
	case nil:
		return true
	case Null:
		return true
	case Bind:
		return x.Value == nil
	}
	return false
}

// Func represents a SQL function call.
type Func struct {
	Name      string
	Arguments []Expr
}

// Call creates a function call expression.
func Call(name string, args ...Expr) Func {
	return Func{Name: name, Arguments: args}
}

// SQL renders the function call.
func (f Func) SQL() string {
	args := make([]string, len(f.Arguments))
	for i, arg := range f.Arguments {
		args[i] = arg.SQL()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

func (f Func) Args() []any { return collectArgs(f.Arguments...) }
func (f Func) Children() []Expr { return f.Arguments }
func (f Func) WithChildren(children ...Expr) Expr {
	return Func{Name: f.Name, Arguments: children}
}

// Aggregate is an aggregate function call such as COUNT("b"."id").
type Aggregate struct {
	Func     string
	Arg      Expr
	Distinct bool
}

// Count creates COUNT(e).
func Count(e Expr) Aggregate { return Aggregate{Func: "COUNT", Arg: e} }

// Sum creates SUM(e).
func Sum(e Expr) Aggregate { return Aggregate{Func: "SUM", Arg: e} }

// Avg creates AVG(e).
func Avg(e Expr) Aggregate { return Aggregate{Func: "AVG", Arg: e} }

// Min creates MIN(e).
func Min(e Expr) Aggregate { return Aggregate{Func: "MIN", Arg: e} }

// Max creates MAX(e).
func Max(e Expr) Aggregate { return Aggregate{Func: "MAX", Arg: e} }

// SQL renders the aggregate call.
func (a Aggregate) SQL() string {
	if a.Distinct {
		return a.Func + "(DISTINCT " + a.Arg.SQL() + ")"
	}
	return a.Func + "(" + a.Arg.SQL() + ")"
}

func (a Aggregate) Args() []any { return a.Arg.Args() }
func (a Aggregate) Children() []Expr { return []Expr{a.Arg} }
func (a Aggregate) WithChildren(children ...Expr) Expr {
	return Aggregate{Func: a.Func, Arg: children[0], Distinct: a.Distinct}
}

// IsAggregate marks the expression as computed over grouped rows.
func (Aggregate) IsAggregate() bool { return true }

// Aggregating is implemented by expressions that only make sense over
// grouped rows. Predicates containing one belong in HAVING.
type Aggregating interface {
	Expr
	IsAggregate() bool
}

// Alias wraps an expression with an alias (expr AS "alias").
type Alias struct {
	Expr Expr
	Name string
}

// As creates an aliased expression.
func As(e Expr, name string) Alias {
	return Alias{Expr: e, Name: name}
}

// SQL renders the aliased expression.
func (a Alias) SQL() string {
	return a.Expr.SQL() + " AS " + Ident(a.Name)
}

func (a Alias) Args() []any { return a.Expr.Args() }
func (a Alias) Children() []Expr { return []Expr{a.Expr} }
func (a Alias) WithChildren(children ...Expr) Expr {
	return Alias{Expr: children[0], Name: a.Name}
}

// collectArgs concatenates the arguments of exprs in order.
func collectArgs(exprs ...Expr) []any {
	var args []any
	for _, e := range exprs {
		if e == nil {
			continue
		}
		args = append(args, e.Args()...)
	}
	return args
}
