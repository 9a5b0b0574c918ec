package sqldsl

import (
	"strconv"
	"strings"
)

// JoinType is the kind of a JOIN clause.
type JoinType int

const (
	// InnerJoin renders as plain JOIN.
	InnerJoin JoinType = iota
	// LeftJoin renders as LEFT JOIN.
	LeftJoin
)

func (t JoinType) String() string {
	if t == LeftJoin {
		return "LEFT JOIN"
	}
	return "JOIN"
}

// JoinClause represents a SQL JOIN clause.
type JoinClause struct {
	Type  JoinType
	Table *TableRef
	On    Expr
}

// SQL renders the JOIN clause.
func (j JoinClause) SQL() string {
	if j.On == nil {
		return j.Type.String() + " " + j.Table.TableSQL()
	}
	return j.Type.String() + " " + j.Table.TableSQL() + " ON " + j.On.SQL()
}

// Args returns the arguments bound in the ON clause.
func (j JoinClause) Args() []any {
	if j.On == nil {
		return nil
	}
	return j.On.Args()
}

// SelectStmt represents a SELECT query.
type SelectStmt struct {
	Distinct bool
	Columns  []Expr
	From     *TableRef
	Joins    []JoinClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderTerm
	Limit    int // 0 renders no LIMIT
	Offset   int // rendered only with a LIMIT
}

// SQL renders the SELECT statement on a single line.
func (s SelectStmt) SQL() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(s.columnsSQL())
	if s.From != nil {
		sb.WriteString(" FROM ")
		sb.WriteString(s.From.TableSQL())
	}
	for _, j := range s.Joins {
		sb.WriteString(" ")
		sb.WriteString(j.SQL())
	}
	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(s.Where.SQL())
	}
	if len(s.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(joinSQL(s.GroupBy))
	}
	if s.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(s.Having.SQL())
	}
	if len(s.OrderBy) > 0 {
		parts := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			parts[i] = o.SQL()
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if s.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(s.Limit))
		if s.Offset > 0 {
			sb.WriteString(" OFFSET ")
			sb.WriteString(strconv.Itoa(s.Offset))
		}
	}
	return sb.String()
}

// Args returns every bound value in placeholder order: select list, joins,
// WHERE, GROUP BY, HAVING, then ORDER BY.
func (s SelectStmt) Args() []any {
	var args []any
	args = append(args, collectArgs(s.Columns...)...)
	for _, j := range s.Joins {
		args = append(args, j.Args()...)
	}
	args = append(args, collectArgs(s.Where)...)
	args = append(args, collectArgs(s.GroupBy...)...)
	args = append(args, collectArgs(s.Having)...)
	for _, o := range s.OrderBy {
		args = append(args, o.Expr.Args()...)
	}
	return args
}

func (s SelectStmt) columnsSQL() string {
	if len(s.Columns) == 0 {
		return "*"
	}
	return joinSQL(s.Columns)
}

func joinSQL(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.SQL()
	}
	return strings.Join(parts, ", ")
}
