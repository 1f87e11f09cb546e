package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSqliteDSN_ConnectionOptions(t *testing.T) {
	dsn := sqliteDSN("fieldline.db")

	assert.Contains(t, dsn, "fieldline.db?")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_journal_mode=WAL")
}
