package sqlgen

import (
	"fmt"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
)

// SegmentKind describes one item of the select list.
type SegmentKind int

const (
	// SegmentTable is a "<t>".* wildcard.
	SegmentTable SegmentKind = iota
	// SegmentAnnotation is an aggregate added by Annotate.
	SegmentAnnotation
	// SegmentExpr is an expression added by Select.
	SegmentExpr
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentTable:
		return "table"
	case SegmentAnnotation:
		return "annotation"
	}
	return "expr"
}

// Segment locates one select list item for the row decoder.
type Segment struct {
	Kind      SegmentKind
	Table     string
	Qualifier string
	Label     string
}

// Statement is a compiled query.
//
// SQL contains one "?" placeholder per entry of Args, in order. Literals in
// SQL come only from values the compiler owns, such as folded instance keys.
type Statement struct {
	SQL      string
	Args     []any
	Segments []Segment
}

// Build renders the plan. Build does not modify the plan and may be called
// repeatedly; identical plans render identical statements.
func (p *Plan) Build() (Statement, error) {
	if p.limit < 0 || p.offset < 0 {
		return Statement{}, fmt.Errorf("relq: invalid limit %d offset %d", p.limit, p.offset)
	}
	if p.offset > 0 && p.limit == 0 {
		return Statement{}, fmt.Errorf("relq: offset %d requires a limit", p.offset)
	}
	stmt := p.selectStmt()
	return Statement{
		SQL:      stmt.SQL(),
		Args:     stmt.Args(),
		Segments: p.segments(),
	}, nil
}

// SelectStmt returns the statement tree the plan renders to.
func (p *Plan) SelectStmt() sqldsl.SelectStmt {
	return p.selectStmt()
}

func (p *Plan) selectStmt() sqldsl.SelectStmt {
	stmt := sqldsl.SelectStmt{
		Columns: p.columns(),
		From:    p.root,
		Limit:   p.limit,
		Offset:  p.offset,
	}

	where := append([]sqldsl.Expr(nil), p.scope.Predicates...)
	for _, j := range p.joins {
		stmt.Joins = append(stmt.Joins, sqldsl.JoinClause{Type: j.Kind, Table: j.Ref, On: j.On})
		where = append(where, j.Scope.Predicates...)
	}
	stmt.Where = sqldsl.And(where...)

	switch {
	case len(p.groupBy) > 0:
		stmt.GroupBy = p.groupBy
	case p.aggregated || len(p.having) > 0:
		for _, c := range p.table.RowKey() {
			stmt.GroupBy = append(stmt.GroupBy, p.root.Col(c))
		}
	}
	stmt.Having = sqldsl.And(p.having...)

	stmt.OrderBy = append(stmt.OrderBy, p.order...)
	stmt.OrderBy = append(stmt.OrderBy, p.scope.Order...)
	for _, j := range p.joins {
		stmt.OrderBy = append(stmt.OrderBy, j.Scope.Order...)
	}
	return stmt
}

// columns returns the select list: explicit selections or the root
// wildcard, then selected joins in attachment order, then annotations in
// declaration order.
func (p *Plan) columns() []sqldsl.Expr {
	var cols []sqldsl.Expr
	if len(p.selects) > 0 {
		cols = append(cols, p.selects...)
	} else {
		cols = append(cols, p.root.Star())
	}
	for _, j := range p.joins {
		if j.Selected && !j.Pivot {
			cols = append(cols, j.Ref.Star())
		}
	}
	for _, a := range p.annotations {
		cols = append(cols, a.expr)
	}
	return cols
}

func (p *Plan) segments() []Segment {
	var segs []Segment
	if len(p.selects) > 0 {
		for _, e := range p.selects {
			seg := Segment{Kind: SegmentExpr}
			if a, ok := e.(sqldsl.Alias); ok {
				seg.Label = a.Name
			}
			segs = append(segs, seg)
		}
	} else {
		segs = append(segs, Segment{Kind: SegmentTable, Table: p.root.Name, Qualifier: p.root.Qualifier()})
	}
	for _, j := range p.joins {
		if j.Selected && !j.Pivot {
			segs = append(segs, Segment{Kind: SegmentTable, Table: j.Ref.Name, Qualifier: j.Ref.Qualifier()})
		}
	}
	for _, a := range p.annotations {
		segs = append(segs, Segment{Kind: SegmentAnnotation, Table: a.ref.Name, Qualifier: a.ref.Qualifier(), Label: a.label})
	}
	return segs
}
