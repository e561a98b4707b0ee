package repository

import (
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"
	auth "github.com/pulseapp/pulse-auth"
)

const pgUniqueViolation = "23505"

// mapDBError converts driver errors into account error kinds.
func mapDBError(err error, meta map[string]any) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return withMeta(auth.ErrAccountNotFound, meta)
	}

	if isUniqueViolation(err) {
		clone := withMeta(auth.ErrDuplicateEmail, meta)
		clone.Source = err
		return clone
	}

	clone := withMeta(auth.ErrInternal, meta)
	clone.Source = err
	return clone
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func withMeta(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if len(meta) == 0 {
		return clone
	}
	return clone.WithMetadata(meta)
}
