package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsDataError_Nil(t *testing.T) {
	assert.Nil(t, AsDataError(nil))
}

func TestAsDataError_PgError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Message: `duplicate key value violates unique constraint "contractors_pkey"`,
		Code:    "23505",
		Hint:    "use a different id",
	}

	de := AsDataError(pgErr)
	require.NotNil(t, de)
	assert.Equal(t, pgErr.Message, de.Message)
	assert.Equal(t, "23505", de.Code)
	assert.Equal(t, "use a different id", de.Hint)
	assert.Equal(t, pgErr.Message, de.Error())
	assert.ErrorIs(t, de, pgErr)
}

func TestAsDataError_NoRows(t *testing.T) {
	for _, err := range []error{pgx.ErrNoRows, sql.ErrNoRows, ErrNotFound} {
		de := AsDataError(err)
		require.NotNil(t, de)
		assert.Equal(t, CodeNotFound, de.Code)
		assert.True(t, IsNotFound(de))
	}
}

func TestAsDataError_Plain(t *testing.T) {
	de := AsDataError(errors.New("connection refused"))
	require.NotNil(t, de)
	assert.Equal(t, "connection refused", de.Message)
	assert.Empty(t, de.Code)
	assert.False(t, IsNotFound(de))
}

func TestAsDataError_PassThrough(t *testing.T) {
	orig := NewDataError("boom", "X1", "try later")
	assert.Same(t, orig, AsDataError(orig))
}

func TestDataError_IsByCode(t *testing.T) {
	err := notFound("assets", "a-1")
	assert.ErrorIs(t, err, &DataError{Code: CodeNotFound})
	assert.NotErrorIs(t, err, &DataError{Code: CodeNoTenant})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "assets a-1 not found", err.Error())
}
