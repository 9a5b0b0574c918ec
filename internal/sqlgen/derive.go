package sqlgen

import (
	"fmt"
	"strings"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

// Filter adds predicates to the request. Bare columns bind to the root
// table when Filter is called, whatever is attached later. Conjuncts that
// contain an aggregate go to HAVING, the rest to WHERE.
func (p *Plan) Filter(exprs ...sqldsl.Expr) error {
	return p.filterOn(p.root, true, exprs)
}

// FilterOn adds predicates whose bare columns bind to ref. The predicates
// render in WHERE, qualified by ref.
func (p *Plan) FilterOn(ref *sqldsl.TableRef, exprs ...sqldsl.Expr) error {
	return p.filterOn(ref, false, exprs)
}

func (p *Plan) filterOn(ref *sqldsl.TableRef, root bool, exprs []sqldsl.Expr) error {
	if !p.owns(ref) {
		return fmt.Errorf("%w: %s is not part of the plan", schema.ErrUnknownAssociation, ref)
	}
	scope := p.scopeOf(ref)
	for _, e := range exprs {
		if e == nil {
			continue
		}
		resolved, err := p.resolve(sqldsl.BindColumns(e, ref))
		if err != nil {
			return err
		}
		for _, c := range sqldsl.Conjuncts(resolved) {
			switch {
			case sqldsl.HasAggregate(c):
				p.having = append(p.having, c)
			case root:
				p.scope.Predicates = append(p.scope.Predicates, c)
			default:
				scope.Predicates = append(scope.Predicates, c)
			}
		}
	}
	return nil
}

// scopeOf returns the scope owned by ref.
func (p *Plan) scopeOf(ref *sqldsl.TableRef) *Scope {
	for _, j := range p.joins {
		if j.Ref == ref {
			return &j.Scope
		}
	}
	return &p.scope
}

// Order appends request-level order terms. Bare columns bind to the root
// table. Request-level terms render before the orderings declared on
// attached associations.
func (p *Plan) Order(terms ...sqldsl.OrderTerm) error {
	return p.OrderOn(p.root, terms...)
}

// OrderOn appends request-level order terms whose bare columns bind to ref.
func (p *Plan) OrderOn(ref *sqldsl.TableRef, terms ...sqldsl.OrderTerm) error {
	if !p.owns(ref) {
		return fmt.Errorf("%w: %s is not part of the plan", schema.ErrUnknownAssociation, ref)
	}
	for _, t := range terms {
		e, err := p.resolve(sqldsl.BindColumns(t.Expr, ref))
		if err != nil {
			return err
		}
		p.order = append(p.order, sqldsl.OrderTerm{Expr: e, Dir: t.Dir})
	}
	return nil
}

// Column resolves a bare column name against every occurrence whose table
// declares columns. It fails with ErrAmbiguousColumn when more than one
// occurrence owns the name, and falls back to the root when none does.
func (p *Plan) Column(name string) (sqldsl.Col, error) {
	var owners []*sqldsl.TableRef
	for _, r := range p.refs() {
		if t := p.tables[r]; t.DeclaresColumns() && t.HasColumn(name) {
			owners = append(owners, r)
		}
	}
	switch len(owners) {
	case 0:
		return p.root.Col(name), nil
	case 1:
		return owners[0].Col(name), nil
	}
	quals := make([]string, len(owners))
	for i, r := range owners {
		quals[i] = r.Qualifier()
	}
	return sqldsl.Col{}, fmt.Errorf("%w: %q is a column of %s", schema.ErrAmbiguousColumn, name, strings.Join(quals, ", "))
}

// GroupBy sets an explicit GROUP BY, replacing the root key grouping added
// for aggregates. Bare columns bind to the root table.
func (p *Plan) GroupBy(exprs ...sqldsl.Expr) {
	for _, e := range exprs {
		p.groupBy = append(p.groupBy, sqldsl.BindColumns(e, p.root))
	}
}

// Having adds predicates to HAVING regardless of their shape.
func (p *Plan) Having(exprs ...sqldsl.Expr) error {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		resolved, err := p.resolve(sqldsl.BindColumns(e, p.root))
		if err != nil {
			return err
		}
		p.having = append(p.having, sqldsl.Conjuncts(resolved)...)
	}
	return nil
}

// Select replaces the default "<root>".* with explicit expressions. Joined
// tables selected with Including and annotations still follow.
func (p *Plan) Select(exprs ...sqldsl.Expr) error {
	for _, e := range exprs {
		resolved, err := p.resolve(sqldsl.BindColumns(e, p.root))
		if err != nil {
			return err
		}
		p.selects = append(p.selects, resolved)
	}
	return nil
}

// Limit restricts the number of rows, optionally skipping offset rows.
// A limit of 0 means no limit; Build rejects an offset without one.
func (p *Plan) Limit(n int, offset ...int) {
	p.limit = n
	p.offset = 0
	if len(offset) > 0 {
		p.offset = offset[0]
	}
}
