package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsForeignKeyViolation(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":        {nil, false},
		"translated": {fmt.Errorf("delete: %w", gorm.ErrForeignKeyViolated), true},
		"postgres":   {&pgconn.PgError{Code: "23503"}, true},
		"unique":     {&pgconn.PgError{Code: "23505"}, false},
		"sqlite":     {errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), true},
		"other":      {errors.New("disk I/O error"), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsForeignKeyViolation(tc.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: spaces.name")))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
