package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsSentinels(t *testing.T) {
	notFound := NotFound("JSON object requested, multiple (or no) rows returned")
	wrapped := fmt.Errorf("fetch profile: %w", notFound)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrDuplicate)

	dup := &Error{Status: 409, Code: CodeUniqueViolation, Message: "duplicate key value"}
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.NotErrorIs(t, dup, ErrNotFound)
}

func TestError_Message(t *testing.T) {
	err := &Error{Status: 400, Code: "22P02", Message: "invalid input syntax", Details: "uuid"}
	assert.Equal(t, "status 400: 22P02: invalid input syntax (uuid)", err.Error())

	assert.Equal(t, "boom", (&Error{Message: "boom"}).Error())
}

func TestIsRefreshTokenError(t *testing.T) {
	assert.True(t, IsRefreshTokenError(errors.New("Invalid Refresh Token: refresh_token_not_found")))
	assert.False(t, IsRefreshTokenError(errors.New("invalid login credentials")))
	assert.False(t, IsRefreshTokenError(nil))
}
