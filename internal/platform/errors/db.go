package errors

import (
	"context"
	"database/sql"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes and codes by the ErrorCode they map to
var sqlStates = map[string]ErrorCode{
	"23505": ErrorCodeConflict,        // unique_violation
	"23503": ErrorCodeInvalidArgument, // foreign_key_violation
	"22001": ErrorCodeInvalidArgument, // string_data_right_truncation
	"22P02": ErrorCodeInvalidArgument, // invalid_text_representation
	"23502": ErrorCodeValidation,      // not_null_violation
	"23514": ErrorCodeValidation,      // check_violation
	"25006": ErrorCodeUnavailable,     // read_only_sql_transaction
	"57P03": ErrorCodeUnavailable,     // cannot_connect_now
}

// retryableStates are transient postgres conditions
var retryableStates = map[string]bool{"40001": true, "40P01": true, "55P03": true, "57P03": true}

// transient text that sqlite and commit paths report without a SQLSTATE
var retryableText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to lock timeout",
	"database is locked",
	"sqlite_busy",
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	ok := stderrs.As(err, &pe)
	return pe, ok
}

// dbCode classifies a driver error; sqlite reports constraint failures as text
func dbCode(err error) ErrorCode {
	if stderrs.Is(err, pgx.ErrNoRows) || stderrs.Is(err, sql.ErrNoRows) {
		return ErrorCodeNotFound
	}
	if pe, ok := pgError(err); ok {
		if code, ok := sqlStates[pe.Code]; ok {
			return code
		}
		return ErrorCodeDB
	}
	if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
		return ErrorCodeConflict
	}
	return ErrorCodeDB
}

// FromDBf classifies a driver error and wraps it with a formatted message; nil stays nil
func FromDBf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return Wrapf(err, dbCode(err), format, a...)
}

// Retryable reports whether another attempt may succeed: Unavailable and
// Timeout codes, serialization and lock failures, and busy databases.
// Context cancellation never is.
func Retryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTimeout:
		return true
	}
	if pe, ok := pgError(err); ok {
		return retryableStates[pe.Code]
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
