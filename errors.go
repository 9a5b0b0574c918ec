package relq

import (
	"errors"

	"github.com/pthm/relq/schema"
)

// Compile-time errors. These are detected synchronously by the call that
// caused them and are never retryable: the request or declaration must be
// fixed. They are defined in package schema and re-exported here.
var (
	// ErrInvalidThroughChain is returned when the pivot of a through
	// association is not the origin of its target hop.
	ErrInvalidThroughChain = schema.ErrInvalidThroughChain

	// ErrAmbiguousColumn is returned when a bare column name belongs to more
	// than one table occurrence of a plan.
	ErrAmbiguousColumn = schema.ErrAmbiguousColumn

	// ErrAliasCollision is returned when an explicit alias is already used
	// in the plan.
	ErrAliasCollision = schema.ErrAliasCollision

	// ErrUnknownAssociation is returned when an association is not declared
	// for the table it is attached to.
	ErrUnknownAssociation = schema.ErrUnknownAssociation

	// ErrInvalidTable is returned for malformed or unknown tables.
	ErrInvalidTable = schema.ErrInvalidTable

	// ErrMissingForeignKey is returned when no foreign key links the tables
	// of an association.
	ErrMissingForeignKey = schema.ErrMissingForeignKey

	// ErrAmbiguousForeignKey is returned when several foreign keys link the
	// tables of an association.
	ErrAmbiguousForeignKey = schema.ErrAmbiguousForeignKey

	// ErrMissingKeyValue is returned when instance resolution lacks a key
	// value.
	ErrMissingKeyValue = schema.ErrMissingKeyValue
)

// Execution errors reported by the Runner. They wrap the driver error.
var (
	// ErrMissingTable is returned when the database reports that a table of
	// the statement does not exist. The schema declaration is out of sync
	// with the database.
	ErrMissingTable = errors.New("relq: table not found in database")

	// ErrMissingColumn is returned when the database reports an unknown
	// column.
	ErrMissingColumn = errors.New("relq: column not found in database")
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

// IsMissingKeyValueErr returns true if err is or wraps ErrMissingKeyValue.
func IsMissingKeyValueErr(err error) bool {
	return errors.Is(err, ErrMissingKeyValue)
}

// IsMissingTableErr returns true if err is or wraps ErrMissingTable.
func IsMissingTableErr(err error) bool {
	return errors.Is(err, ErrMissingTable)
}

// IsMissingColumnErr returns true if err is or wraps ErrMissingColumn.
func IsMissingColumnErr(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}

// PostgreSQL error codes for error mapping.
const (
	pgUndefinedTable  = "42P01" // undefined_table
	pgUndefinedColumn = "42703" // undefined_column
)
