package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictochat/backend/internal/database"
)

func TestInitDB(t *testing.T) {
	t.Run("Creates directory and schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "chat.db")

		db, err := database.InitDB(path)
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		for _, table := range []string{"chats", "messages", "settings"} {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			require.NoError(t, err, "table %s should exist", table)
		}
	})

	t.Run("Reopening an existing database is a no-op migration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chat.db")

		db, err := database.InitDB(path)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db, err = database.InitDB(path)
		require.NoError(t, err)
		assert.NoError(t, db.Close())
	})

	t.Run("Role check constraint rejects unknown roles", func(t *testing.T) {
		db, err := database.InitDB(filepath.Join(t.TempDir(), "chat.db"))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		_, err = db.Exec("INSERT INTO chats (id, user_id, title, created_at) VALUES ('c1', 'u1', 't', CURRENT_TIMESTAMP)")
		require.NoError(t, err)

		_, err = db.Exec("INSERT INTO messages (id, chat_id, content, role, is_image, created_at) VALUES ('m1', 'c1', 'x', 'system', 0, CURRENT_TIMESTAMP)")
		assert.Error(t, err)
	})

	t.Run("Foreign key rejects messages for unknown chats", func(t *testing.T) {
		db, err := database.InitDB(filepath.Join(t.TempDir(), "chat.db"))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		_, err = db.Exec("INSERT INTO messages (id, chat_id, content, role, is_image, created_at) VALUES ('m1', 'missing', 'x', 'user', 0, CURRENT_TIMESTAMP)")
		assert.Error(t, err)
	})
}
