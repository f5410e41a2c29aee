package backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPassesThroughNotFound(t *testing.T) {
	err := Wrap("select profile", fmt.Errorf("lookup: %w", ErrNotFound))
	assert.True(t, errors.Is(err, ErrNotFound))

	var be *Error
	assert.False(t, errors.As(err, &be))
}

func TestWrapBuildsBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap("insert result", cause)

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "insert result", be.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert result: connection refused", err.Error())
}

func TestWrapKeepsExistingBackendError(t *testing.T) {
	orig := &Error{Op: "select results", Status: 400, Code: "PGRST100", Message: "bad filter"}
	err := Wrap("other", orig)
	assert.Same(t, orig, err)
	assert.Equal(t, "select results: bad filter (PGRST100)", err.Error())
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(fmt.Errorf("upsert: %w", &ValidationError{Field: "display_name", Message: "too long"})))
	assert.False(t, IsValidation(errors.New("other")))
	assert.Nil(t, Wrap("noop", nil))
}
