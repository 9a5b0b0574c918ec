package relq_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pthm/relq"
	"github.com/pthm/relq/schema"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		helper func(error) bool
	}{
		{"IsInvalidThroughChainErr", relq.ErrInvalidThroughChain, relq.IsInvalidThroughChainErr},
		{"IsAmbiguousColumnErr", relq.ErrAmbiguousColumn, relq.IsAmbiguousColumnErr},
		{"IsAliasCollisionErr", relq.ErrAliasCollision, relq.IsAliasCollisionErr},
		{"IsUnknownAssociationErr", relq.ErrUnknownAssociation, relq.IsUnknownAssociationErr},
		{"IsMissingKeyValueErr", relq.ErrMissingKeyValue, relq.IsMissingKeyValueErr},
		{"IsMissingTableErr", relq.ErrMissingTable, relq.IsMissingTableErr},
		{"IsMissingColumnErr", relq.ErrMissingColumn, relq.IsMissingColumnErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.helper(fmt.Errorf("wrapped: %w", tt.err)) {
				t.Errorf("%s should return true for wrapped %v", tt.name, tt.err)
			}
			if tt.helper(errors.New("other error")) {
				t.Errorf("%s should return false for other errors", tt.name)
			}
		})
	}
}

func TestSentinelErrorsAreShared(t *testing.T) {
	// Errors raised by the schema package must match the root re-exports.
	if !errors.Is(fmt.Errorf("%w: x", schema.ErrAliasCollision), relq.ErrAliasCollision) {
		t.Error("schema.ErrAliasCollision should be relq.ErrAliasCollision")
	}
	if !relq.IsInvalidThroughChainErr(fmt.Errorf("%w: x", schema.ErrInvalidThroughChain)) {
		t.Error("schema.ErrInvalidThroughChain should be relq.ErrInvalidThroughChain")
	}
}

func TestSentinelErrors(t *testing.T) {
	for _, err := range []error{
		relq.ErrInvalidThroughChain,
		relq.ErrAmbiguousColumn,
		relq.ErrAliasCollision,
		relq.ErrUnknownAssociation,
		relq.ErrInvalidTable,
		relq.ErrMissingForeignKey,
		relq.ErrAmbiguousForeignKey,
		relq.ErrMissingKeyValue,
		relq.ErrMissingTable,
		relq.ErrMissingColumn,
	} {
		t.Run(err.Error(), func(t *testing.T) {
			if len(err.Error()) <= len("relq: ") || err.Error()[:6] != "relq: " {
				t.Errorf("error message %q should carry the relq prefix", err.Error())
			}
		})
	}
}
