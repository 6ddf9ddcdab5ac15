package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/wordvault/wordvault/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel() // Enable parallel testing

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil_error_passes_through",
			err:  nil,
			want: nil,
		},
		{
			name: "no_rows_maps_to_not_found",
			err:  sql.ErrNoRows,
			want: store.ErrNotFound,
		},
		{
			name: "wrapped_no_rows_maps_to_not_found",
			err:  fmt.Errorf("query: %w", sql.ErrNoRows),
			want: store.ErrNotFound,
		},
		{
			name: "unique_violation_maps_to_duplicate",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			want: store.ErrDuplicate,
		},
		{
			name: "foreign_key_violation_maps_to_invalid_entity",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "sync_records_user_id_fkey"},
			want: store.ErrInvalidEntity,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := MapError(tc.err)
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestMapError_UnknownErrorsPassThrough(t *testing.T) {
	t.Parallel() // Enable parallel testing

	original := errors.New("connection reset")
	assert.Equal(t, original, MapError(original), "unmapped errors should come back untouched")
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel() // Enable parallel testing

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
}
