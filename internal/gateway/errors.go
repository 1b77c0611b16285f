package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Backend error codes shared by every adapter.
const (
	// CodeNoRows is returned when a single-row read matches nothing.
	CodeNoRows = "PGRST116"
	// CodeUniqueViolation is the Postgres unique constraint violation.
	CodeUniqueViolation = "23505"
)

var (
	// ErrNotFound matches any Error carrying CodeNoRows.
	ErrNotFound = errors.New("gateway: no rows")
	// ErrDuplicate matches any Error carrying CodeUniqueViolation.
	ErrDuplicate = errors.New("gateway: duplicate row")
)

// Error is a failure reported by the backend.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Status != 0 {
		fmt.Fprintf(&b, "status %d: ", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, "%s: ", e.Code)
	}
	b.WriteString(e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	return b.String()
}

// Is lets errors.Is match the sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNoRows
	case ErrDuplicate:
		return e.Code == CodeUniqueViolation
	}
	return false
}

// NotFound builds a no-rows error.
func NotFound(message string) *Error {
	return &Error{Status: 406, Code: CodeNoRows, Message: message}
}

// IsRefreshTokenError reports whether err concerns a refresh token.
func IsRefreshTokenError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "refresh_token")
}
