package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/inkwell-ai/inkwell-api/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		t.Parallel()
		err := MapError(sql.ErrNoRows)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		t.Parallel()
		pgErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "artifacts_job_id_key"}
		err := MapError(fmt.Errorf("insert failed: %w", pgErr))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("foreign key violation maps to invalid entity", func(t *testing.T) {
		t.Parallel()
		pgErr := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "jobs_user_id_fkey"}
		err := MapError(pgErr)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), "jobs_user_id_fkey")
	})

	t.Run("unknown error passes through", func(t *testing.T) {
		t.Parallel()
		orig := errors.New("connection refused")
		assert.Equal(t, orig, MapError(orig))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: uniqueViolationCode})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestNullString(t *testing.T) {
	t.Parallel()

	assert.False(t, nullString("").Valid)

	ns := nullString("ticket-123")
	assert.True(t, ns.Valid)
	assert.Equal(t, "ticket-123", ns.String)
}
