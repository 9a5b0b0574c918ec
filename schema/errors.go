package schema

import "errors"

// Sentinel errors raised while declaring schemas or building plans.
// Every one of them is detected synchronously by the call that caused it
// and none are retryable: the caller must fix the declaration or request.
var (
	// ErrInvalidThroughChain is returned when the pivot of a through
	// association is not the origin of its target hop.
	ErrInvalidThroughChain = errors.New("relq: invalid through chain")

	// ErrAmbiguousColumn is returned when a bare column name is declared by
	// more than one table occurrence in a plan.
	ErrAmbiguousColumn = errors.New("relq: ambiguous column")

	// ErrAliasCollision is returned when an explicit alias is already used as
	// a qualifier in the plan.
	ErrAliasCollision = errors.New("relq: alias collision")

	// ErrUnknownAssociation is returned when an association is not declared
	// for the table it is attached to.
	ErrUnknownAssociation = errors.New("relq: unknown association")

	// ErrInvalidTable is returned for malformed table declarations: empty
	// names, missing primary keys on keyed tables, or unknown tables.
	ErrInvalidTable = errors.New("relq: invalid table")

	// ErrMissingForeignKey is returned when no foreign key links the two
	// tables of an association and none was given explicitly.
	ErrMissingForeignKey = errors.New("relq: missing foreign key")

	// ErrAmbiguousForeignKey is returned when several foreign keys link the
	// two tables of an association and none was selected explicitly.
	ErrAmbiguousForeignKey = errors.New("relq: ambiguous foreign key")

	// ErrMissingKeyValue is returned when instance resolution lacks a value
	// for one of the origin key columns.
	ErrMissingKeyValue = errors.New("relq: missing key value")
)

// IsInvalidThroughChainErr returns true if err is or wraps ErrInvalidThroughChain.
func IsInvalidThroughChainErr(err error) bool {
	return errors.Is(err, ErrInvalidThroughChain)
}

// IsAmbiguousColumnErr returns true if err is or wraps ErrAmbiguousColumn.
func IsAmbiguousColumnErr(err error) bool {
	return errors.Is(err, ErrAmbiguousColumn)
}

// IsAliasCollisionErr returns true if err is or wraps ErrAliasCollision.
func IsAliasCollisionErr(err error) bool {
	return errors.Is(err, ErrAliasCollision)
}

// IsUnknownAssociationErr returns true if err is or wraps ErrUnknownAssociation.
func IsUnknownAssociationErr(err error) bool {
	return errors.Is(err, ErrUnknownAssociation)
}

// ErrDuplicateAssociation is returned when an association name is declared
// twice for the same origin table.
var ErrDuplicateAssociation = errors.New("relq: duplicate association")
