package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("error"), "check repository.base_url")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "check repository.base_url", hints[0])
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.False(t, IsAbsent(nil))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsConflictError(nil))
}

func TestIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"empty position", Wrap(ErrEmptyPosition, "first"), true},
		{"node not found", Wrapf(ErrNodeNotFound, "selector %q", "foo bar"), true},
		{"not implemented", NotImplementedf("at_css create"), false},
		{"unexpected attribute", Wrap(ErrUnexpectedAttribute, "color"), false},
		{"plain error", New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAbsent(tt.err))
		})
	}
}

func TestSentinelHelpers(t *testing.T) {
	err := NewNotFoundError("resource %s", "/rest/a")
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "/rest/a")

	err = NewInvalidRequestError("bad id %q", "")
	assert.True(t, Is(err, ErrInvalidRequest))

	err = TypeMismatchf("want string, got %T", 3)
	assert.True(t, Is(err, ErrTypeMismatch))
	assert.Contains(t, err.Error(), "int")

	err = Wrap(ErrConflict, "etag changed")
	assert.True(t, IsConflictError(err))
}

func ExampleIsAbsent() {
	err := Wrap(ErrEmptyPosition, "first")
	fmt.Println(IsAbsent(err))
	// Output: true
}
