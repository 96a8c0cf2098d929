// Package databasetest opens throwaway SQLite databases behind a real
// database.Connector for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database"
)

// Open creates a SQLite file in t.TempDir() with foreign keys enforced,
// migrates schema into it, and returns a Connector for it.
func Open(t testing.TB, schema []any, opts ...database.Option) *database.Connector {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"

	conn, err := database.New("sqlite", dsn, opts...)
	require.NoError(t, err)

	if len(schema) > 0 {
		err = conn.Session(context.Background(), func(tx *gorm.DB) error {
			return tx.AutoMigrate(schema...)
		})
		require.NoError(t, err, "migrate test schema")
	}

	return conn
}
