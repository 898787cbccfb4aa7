package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped cause is reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "failed to load profile")

		assert.True(t, HasCode(err, CodeInternal))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load profile: connection refused", err.Error())
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "missing")
		outer := Wrap(inner, CodeInternal, "lookup failed")

		assert.Equal(t, CodeInternal, CodeOf(outer))
		assert.False(t, HasCode(outer, CodeNotFound))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		err := fmt.Errorf("boom")
		assert.Equal(t, Code(""), CodeOf(err))
		assert.False(t, Is(err, CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}
