package sqldsl

// TransformUp applies fn to every node of e from the bottom up and returns
// the rebuilt tree. The input tree is never modified.
func TransformUp(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	children := e.Children()
	if len(children) == 0 {
		return fn(e)
	}

	newChildren := make([]Expr, len(children))
	for i, c := range children {
		newChildren[i] = TransformUp(c, fn)
	}
	return fn(e.WithChildren(newChildren...))
}

// Walk visits e in pre-order. Returning false from fn skips the children
// of the current node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.Children() {
		Walk(c, fn)
	}
}

// BindColumns resolves every bare column in e to ref. Columns that are
// already bound keep their table.
func BindColumns(e Expr, ref *TableRef) Expr {
	return TransformUp(e, func(n Expr) Expr {
		if c, ok := n.(Col); ok && c.Table == nil {
			return Col{Table: ref, Column: c.Column}
		}
		if s, ok := n.(Star); ok && s.Table == nil {
			return Star{Table: ref}
		}
		return n
	})
}

// HasAggregate reports whether e contains an aggregate expression.
func HasAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if a, ok := n.(Aggregating); ok && a.IsAggregate() {
			found = true
		}
		return !found
	})
	return found
}

// Conjuncts splits a top-level AND into its parts.
func Conjuncts(e Expr) []Expr {
	if e == nil {
		return nil
	}
	if a, ok := e.(AndExpr); ok {
		return a.Exprs
	}
	return []Expr{e}
}

// Tables returns the distinct table occurrences referenced by e's columns,
// in first-seen order.
func Tables(e Expr) []*TableRef {
	var refs []*TableRef
	seen := make(map[*TableRef]bool)
	Walk(e, func(n Expr) bool {
		var ref *TableRef
		switch x := n.(type) {
		case Col:
			ref = x.Table
		case Star:
			ref = x.Table
		}
		if ref != nil && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}
