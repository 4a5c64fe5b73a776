package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
)

// Codes set by the stores on DataError. Postgres errors keep their SQLSTATE.
const (
	CodeNotFound       = "not_found"
	CodeNoTenant       = "no_tenant"
	CodeInvalidRequest = "invalid_request"
	CodeStorePanic     = "store_panic"
)

// ErrNotFound is the cause of a DataError for a missing row.
var ErrNotFound = eris.New("record not found")

// ErrForeignRows marks a seed that hit ids owned by another organization.
// Those rows are left as they were.
var ErrForeignRows = eris.New("rows belong to another organization")

func foreignRows(table string, n int64) error {
	return eris.Wrapf(ErrForeignRows, "seed %s: %d", table, n)
}

// DataError is the uniform failure shape surfaced to callers. Message is the
// store's own message, unprefixed, so it can be shown as-is.
type DataError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Hint    string `json:"hint,omitempty"`

	cause error
}

func (e *DataError) Error() string {
	return e.Message
}

func (e *DataError) Unwrap() error {
	return e.cause
}

// Is matches another DataError by code.
func (e *DataError) Is(target error) bool {
	t, ok := target.(*DataError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// NewDataError builds a DataError without an underlying cause.
func NewDataError(message, code, hint string) *DataError {
	return &DataError{Message: message, Code: code, Hint: hint}
}

// IsNotFound reports whether err describes a missing row.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var de *DataError
	return errors.As(err, &de) && de.Code == CodeNotFound
}

// AsDataError normalizes any store failure into a DataError. Postgres errors
// keep message, SQLSTATE and hint; SQLite errors keep message and extended
// result code; anything else keeps its message.
func AsDataError(err error) *DataError {
	if err == nil {
		return nil
	}

	var de *DataError
	if errors.As(err, &de) {
		return de
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &DataError{Message: pgErr.Message, Code: pgErr.Code, Hint: pgErr.Hint, cause: err}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return &DataError{Message: liteErr.Error(), Code: strconv.Itoa(liteErr.Code()), cause: err}
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return &DataError{Message: "record not found", Code: CodeNotFound, cause: err}
	}

	return &DataError{Message: err.Error(), cause: err}
}

func notFound(table, id string) *DataError {
	return &DataError{
		Message: fmt.Sprintf("%s %s not found", table, id),
		Code:    CodeNotFound,
		cause:   ErrNotFound,
	}
}
