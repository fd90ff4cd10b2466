package rserrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestNew(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")

	assert.Equal(t, "validation: bad input", err.Error())
	assert.Nil(t, err.Unwrap())
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrorTypeFile, "ignored"))
	})

	t.Run("sentinel cause", func(t *testing.T) {
		err := Wrap(errSentinel, ErrorTypeData, "decode failed")

		assert.ErrorIs(t, err, errSentinel)
		assert.Equal(t, "data: decode failed: sentinel", err.Error())
	})

	t.Run("preserves stack of inner error", func(t *testing.T) {
		inner := New(ErrorTypeValidation, "inner")
		outer := Wrap(inner, ErrorTypeFile, "outer")

		assert.Equal(t, inner.Stack, outer.Stack)
		assert.True(t, IsType(outer, ErrorTypeFile))
	})

	t.Run("through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", Wrap(errSentinel, ErrorTypeQuery, "query"))

		assert.ErrorIs(t, err, errSentinel)
		assert.True(t, IsType(err, ErrorTypeQuery))
	})
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeValidation, "mismatch").
		WithDetail("column", "b").
		WithDetail("expected_rows", 3)

	v, ok := DetailOf(err, "expected_rows")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = DetailOf(err, "missing")
	assert.False(t, ok)

	_, ok = DetailOf(errSentinel, "column")
	assert.False(t, ok)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection", New(ErrorTypeConnection, "x"), true},
		{"timeout", New(ErrorTypeTimeout, "x"), true},
		{"validation", New(ErrorTypeValidation, "x"), false},
		{"plain error", errSentinel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
