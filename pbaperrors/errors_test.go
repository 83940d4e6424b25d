package pbaperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(KindPathNotFound, "vfolder.Read", "no such object")
	assert.Contains(t, err.Error(), "path-not-found")
	assert.Contains(t, err.Error(), "vfolder.Read")
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk exploded")
	err := Wrap(KindTransportError, "obex.Read", "short read", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		fn   func(error) bool
		want bool
	}{
		{"not found direct", New(KindPathNotFound, "op", "msg"), IsNotFound, true},
		{"not a file counts as not found", New(KindNotAFile, "op", "msg"), IsNotFound, true},
		{"forbidden is not not-found", New(KindForbidden, "op", "msg"), IsNotFound, false},
		{"forbidden predicate", New(KindForbidden, "op", "msg"), IsForbidden, true},
		{"malformed params", New(KindMalformedParams, "op", "msg"), IsMalformed, true},
		{"unknown object type is malformed", New(KindUnknownObjectType, "op", "msg"), IsMalformed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "forbidden", KindForbidden.String())
	assert.Equal(t, "unknown", Kind(255).String())
}
