package postgres

import (
	"errors"
	"fmt"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	invalidTextEncoding = "22P02"
)

// mapError translates driver errors into domain errors. Malformed UUIDs can
// never match a row, so they read as not found.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return domain.ErrConflict
		case invalidTextEncoding:
			return domain.ErrNotFound
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
