package database_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database/databasetest"
)

type note struct {
	ID   int64
	Body string
}

func countNotes(t *testing.T, conn *database.Connector) int64 {
	t.Helper()
	var n int64
	err := conn.Session(context.Background(), func(tx *gorm.DB) error {
		return tx.Model(&note{}).Count(&n).Error
	})
	require.NoError(t, err)
	return n
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := database.New("oracle", "whatever")
	assert.ErrorIs(t, err, database.ErrUnsupportedDriver)
}

func TestNew_DoesNotConnect(t *testing.T) {
	conn, err := database.New("postgres", "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "postgres", conn.Driver())
}

func TestSession_CommitsOnSuccess(t *testing.T) {
	conn := databasetest.Open(t, []any{&note{}})

	err := conn.Session(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&note{Body: "kept"}).Error
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countNotes(t, conn))
}

func TestSession_RollsBackOnError(t *testing.T) {
	conn := databasetest.Open(t, []any{&note{}})
	boom := errors.New("boom")

	err := conn.Session(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&note{Body: "first"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Zero(t, countNotes(t, conn))
}

func TestSession_RollsBackOnPanic(t *testing.T) {
	conn := databasetest.Open(t, []any{&note{}})

	assert.Panics(t, func() {
		_ = conn.Session(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&note{Body: "lost"})
			panic("mid-transaction")
		})
	})

	assert.Zero(t, countNotes(t, conn), "panic must not leave a committed row")
}

func TestSession_OpenFailure(t *testing.T) {
	conn, err := database.New("sqlite", "/nonexistent-dir/sub/db.sqlite")
	require.NoError(t, err)

	called := false
	err = conn.Session(context.Background(), func(*gorm.DB) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestPing(t *testing.T) {
	conn := databasetest.Open(t, nil)

	version, err := conn.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(version, "3."), "sqlite version %q", version)
}

type failingPlugin struct{}

func (failingPlugin) Name() string { return "failing" }

func (failingPlugin) Initialize(*gorm.DB) error { return errors.New("refused") }

func TestWithPlugins_InitFailureAbortsSession(t *testing.T) {
	failing, err := database.New("sqlite", "file::memory:", database.WithPlugins(failingPlugin{}))
	require.NoError(t, err)

	err = failing.Session(context.Background(), func(*gorm.DB) error { return nil })
	assert.ErrorContains(t, err, "refused")
}
