package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMigrations_EmbeddedSchema(t *testing.T) {
	got, err := pendingMigrations(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, migration{version: 1, name: "001_memory_log.sql"}, got[0])
}

func TestPendingMigrations_OrderAndFiltering(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql":  {Data: []byte("SELECT 1")},
		"migrations/002_second.sql": {Data: []byte("SELECT 1")},
		"migrations/readme.md":      {Data: []byte("notes")},
		"migrations/000_zero.sql":   {Data: []byte("SELECT 1")},
		"migrations/x.sql":          {Data: []byte("SELECT 1")},
	}

	got, err := pendingMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []migration{
		{version: 2, name: "002_second.sql"},
		{version: 10, name: "010_later.sql"},
	}, got)
}

func TestRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(t.Context(), "not-a-url")
	assert.Error(t, err)
}
