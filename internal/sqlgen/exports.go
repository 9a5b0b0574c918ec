// This file re-exports the sqldsl types plans are built from, so that
// callers of this package rarely need to import sqldsl directly.

package sqlgen

import (
	"github.com/pthm/relq/internal/sqlgen/sqldsl"
)

// Expression types
type (
	Expr      = sqldsl.Expr
	Col       = sqldsl.Col
	TableRef  = sqldsl.TableRef
	OrderTerm = sqldsl.OrderTerm
	JoinType  = sqldsl.JoinType
)

// Join kinds
const (
	InnerJoin = sqldsl.InnerJoin
	LeftJoin  = sqldsl.LeftJoin
)

// Expression constructors
var (
	Column    = sqldsl.Column
	Value     = sqldsl.Value
	Eq        = sqldsl.Eq
	Ne        = sqldsl.Ne
	Lt        = sqldsl.Lt
	Lte       = sqldsl.Lte
	Gt        = sqldsl.Gt
	Gte       = sqldsl.Gte
	Like      = sqldsl.Like
	And       = sqldsl.And
	Or        = sqldsl.Or
	Not       = sqldsl.Not
	Asc       = sqldsl.Asc
	Desc      = sqldsl.Desc
	AliasExpr = sqldsl.As
)
