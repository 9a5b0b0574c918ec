// Package compiler provides the public API for compiling association-aware
// requests into SQL.
//
// This is a thin wrapper around internal/sqlgen that exposes only the types
// and functions needed by external consumers. Tables and associations are
// declared with the schema package.
//
//	p, _ := compiler.NewPlan(reg, "authors")
//	_ = p.Filter(compiler.Count(books).Gt(0))
//	stmt, _ := p.Build()
//	// SELECT "authors".* FROM "authors" LEFT JOIN "books" ON (...)
//	//   GROUP BY "authors"."id" HAVING (COUNT("books"."id") > 0)
package compiler

import (
	"github.com/pthm/relq/internal/sqlgen"
	"github.com/pthm/relq/internal/sqlgen/sqldsl"
)

// Plan is a request under construction.
type Plan = sqlgen.Plan

// Statement is a compiled query: SQL text, ordered arguments and the layout
// of the select list.
type Statement = sqlgen.Statement

// Segment locates one select list item.
type Segment = sqlgen.Segment

// SegmentKind describes a select list item.
type SegmentKind = sqlgen.SegmentKind

// Select list item kinds.
const (
	SegmentTable      = sqlgen.SegmentTable
	SegmentAnnotation = sqlgen.SegmentAnnotation
	SegmentExpr       = sqlgen.SegmentExpr
)

// JoinNode is one join of a plan.
type JoinNode = sqlgen.JoinNode

// AttachOption configures an attachment.
type AttachOption = sqlgen.AttachOption

// AssociationAggregate is an aggregate over the rows of an association.
type AssociationAggregate = sqlgen.AssociationAggregate

// Expr is a SQL expression.
type Expr = sqldsl.Expr

// Col is a column reference.
type Col = sqldsl.Col

// TableRef is one occurrence of a table in a plan.
type TableRef = sqldsl.TableRef

// OrderTerm is one ORDER BY item.
type OrderTerm = sqldsl.OrderTerm

// NewPlan starts a plan selecting from a table of a registry.
var NewPlan = sqlgen.NewPlan

// NewPlanAs starts a plan selecting from a table under an explicit alias.
var NewPlanAs = sqlgen.NewPlanAs

// ForInstance plans the rows an association matches for one origin row.
var ForInstance = sqlgen.ForInstance

// Attachment options.
var (
	Including    = sqlgen.Including
	Joining      = sqlgen.Joining
	Required     = sqlgen.Required
	OptionalJoin = sqlgen.OptionalJoin
	As           = sqlgen.As
)

// Association aggregates.
var (
	Count = sqlgen.Count
	Sum   = sqlgen.Sum
	Avg   = sqlgen.Avg
	Min   = sqlgen.Min
	Max   = sqlgen.Max
)

// Expression constructors.
var (
	Column = sqlgen.Column
	Value  = sqlgen.Value
	Eq     = sqlgen.Eq
	Ne     = sqlgen.Ne
	Lt     = sqlgen.Lt
	Lte    = sqlgen.Lte
	Gt     = sqlgen.Gt
	Gte    = sqlgen.Gte
	Like   = sqlgen.Like
	And    = sqlgen.And
	Or     = sqlgen.Or
	Not    = sqlgen.Not
	Asc    = sqlgen.Asc
	Desc   = sqlgen.Desc
	Alias  = sqlgen.AliasExpr
)

// Table creates an unaliased table occurrence, for custom join conditions
// and tests.
var Table = sqldsl.Table
