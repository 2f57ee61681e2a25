package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	assert.True(t, IsSchemaMismatch(NewSchemaMismatchError("person", "site", "EMP001")))
	assert.True(t, IsNotFound(NewSnapshotNotFoundError("sync_person_x")))
	assert.True(t, IsLeaseHeld(NewLeaseError("person")))
	assert.True(t, IsValidationError(NewValidationError("key", "", "empty key")))
	assert.True(t, Is(NewCaptureError("person", assert.AnError), ErrCaptureFailed))
	assert.True(t, IsCommitFailure(NewCommitError("person", "snap-1", assert.AnError)))
	assert.True(t, IsFatal(NewRestoreFailedError("snap-1", 4, assert.AnError)))

	// Predicates do not cross-match.
	assert.False(t, IsFatal(NewCommitError("person", "snap-1", assert.AnError)))
	assert.False(t, IsCommitFailure(NewRestoreFailedError("snap-1", 4, assert.AnError)))
	assert.False(t, IsNotFound(NewLeaseError("person")))
}

func TestRestoreFailedErrorMessage(t *testing.T) {
	err := NewRestoreFailedError("sync_person_20260401_120000_ab12cd34", 4, assert.AnError)
	assert.Contains(t, err.Error(), "FATAL:")
	assert.Contains(t, err.Error(), "sync_person_20260401_120000_ab12cd34")
	assert.Contains(t, err.Error(), "4 attempts")
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := New("disk full")

	commitErr := NewCommitError("person", "snap-1", fmt.Errorf("apply: %w", cause))
	assert.True(t, Is(commitErr, cause))

	var ioErr *IOError
	wrapped := WrapIO("write", "records.db", cause)
	require.True(t, As(wrapped, &ioErr))
	assert.Equal(t, "write", ioErr.Operation)
	assert.True(t, Is(wrapped, cause))
}

func TestWrapHelpersPassNilThrough(t *testing.T) {
	assert.NoError(t, WrapIO("read", "records.db", nil))
	assert.NoError(t, WrapParse("json", "people.json", nil))
}

func TestWrapParse(t *testing.T) {
	cause := New("unexpected end of input")
	err := WrapParse("yaml", "sites.yaml", cause)

	var parseErr *ParseError
	require.True(t, As(err, &parseErr))
	assert.Equal(t, "yaml", parseErr.Format)
	assert.Equal(t, "sites.yaml", parseErr.File)
	assert.True(t, Is(err, cause))
}
