package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	specific := Newf(Cooldown, "about %d hours left", 3)

	assert.True(t, errors.Is(specific, ErrCooldown))
	assert.False(t, errors.Is(specific, ErrAlreadyBound))
	assert.Equal(t, "COOLDOWN: about 3 hours left", specific.Error())
}

func TestError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("check in: %w", ErrTooEarly)

	assert.True(t, errors.Is(err, ErrTooEarly))
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, TooEarly, code)
}

func TestCodeOf_PlainError(t *testing.T) {
	_, ok := CodeOf(errors.New("connection refused"))
	assert.False(t, ok)
}
