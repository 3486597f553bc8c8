package persist

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFilesInApplyOrder(t *testing.T) {
	files, err := schemaFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00001_session_snapshots.sql",
		"00002_replay_journals.sql",
	}, files)
}

func TestMigrationsCreateStoreTables(t *testing.T) {
	tables := map[string]string{
		"00001_session_snapshots.sql": "session_snapshots",
		"00002_replay_journals.sql":   "replay_journals",
	}
	for file, table := range tables {
		raw, err := migrations.ReadFile(path.Join(migrationsDir, file))
		require.NoError(t, err, file)
		sql := string(raw)
		assert.Contains(t, sql, "-- +goose Up", file)
		assert.Contains(t, sql, "-- +goose Down", file)
		assert.Contains(t, sql, "CREATE TABLE "+table+" (", file)
		assert.Contains(t, sql, "DROP TABLE IF EXISTS "+table, file)
	}
}
