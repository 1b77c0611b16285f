// Package repository implements the gateway table and procedure
// capabilities directly on Postgres through gorm.
package repository

import (
	"errors"

	"wallhub/internal/gateway"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// translate maps driver errors onto the gateway error model so callers see
// the same codes in REST and database mode.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gateway.NotFound(err.Error())
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &gateway.Error{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Details: pgErr.Detail,
			Hint:    pgErr.Hint,
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &gateway.Error{Code: gateway.CodeUniqueViolation, Message: err.Error()}
	}
	return err
}
