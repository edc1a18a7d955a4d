// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// # SQLSTATE Classification
//
// Repositories call the predicates below before falling back to [Wrap]:
//
//   - 23505 unique_violation      → the caller maps it to a Conflict.
//   - 23503 foreign_key_violation → the caller maps it to a Validation error.
//   - pgx.ErrNoRows               → NotFound for the named resource.
package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/messagely/internal/platform/apperr"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// Keep kinds that were already classified upstream.
	if apperr.IsAppError(err) {
		return err
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Unknown query errors become Internal Server Errors.
	// Connectivity failures land here too and are not retried.
	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, CodeForeignKeyViolation)
}

// ConstraintName returns the violated constraint name, or "" if err is not a PgError.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
