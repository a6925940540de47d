package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/fedlens/errors"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestOpenWithMigrations(t *testing.T) {
	t.Run("creates the repository schema", func(t *testing.T) {
		db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t).Sugar())
		require.NoError(t, err)
		defer db.Close()

		for _, table := range []string{"schema_migrations", "resources", "triples"} {
			assert.True(t, tableExists(t, db, table), table)
		}

		files, err := migrationFiles()
		require.NoError(t, err)
		var applied int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
		assert.Equal(t, len(files), applied)
	})

	t.Run("is idempotent", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		db.Close()

		db, err = OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()
		require.NoError(t, Migrate(db, nil))
	})

	t.Run("triples cascade with their resource", func(t *testing.T) {
		db, err := OpenWithMigrations(MemoryPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec(`INSERT INTO resources (id, subject, etag) VALUES ('rest/a', 'http://x/rest/a', 'W/"1"')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO triples (resource_id, position, subject, predicate, object) VALUES ('rest/a', 0, '<http://x/rest/a>', 'http://p', '"v"')`)
		require.NoError(t, err)
		_, err = db.Exec(`DELETE FROM resources WHERE id = 'rest/a'`)
		require.NoError(t, err)

		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM triples").Scan(&n))
		assert.Zero(t, n)
	})

	t.Run("open errors carry stack traces", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		dir := t.TempDir()
		require.NoError(t, os.Chmod(dir, 0555))
		defer os.Chmod(dir, 0755)

		db, err := OpenWithMigrations(filepath.Join(dir, "test.db"), nil)
		require.Error(t, err)
		assert.Nil(t, db)
		assert.NotNil(t, errors.GetStack(err))
		assert.Contains(t, fmt.Sprintf("%+v", err), "connection.go")
	})
}
