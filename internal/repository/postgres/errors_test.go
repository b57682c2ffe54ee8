package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestViolationHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isUniqueViolation(fk))
	assert.True(t, isForeignKeyViolation(fk))
	assert.False(t, isForeignKeyViolation(errors.New("other")))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(errors.New("other")))
}

func TestSchemaCoversTables(t *testing.T) {
	for _, table := range Tables {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
