package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useFiles loads the given app.json and .env contents in place of the
// working-directory files. Empty content means the file is absent.
func useFiles(t *testing.T, appJSON, dotEnv string) {
	t.Helper()
	loadOnce.Do(func() {})

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	envPath := filepath.Join(dir, ".env")
	if appJSON != "" {
		require.NoError(t, os.WriteFile(jsonPath, []byte(appJSON), 0o644))
	}
	if dotEnv != "" {
		require.NoError(t, os.WriteFile(envPath, []byte(dotEnv), 0o644))
	}

	require.NoError(t, loadFromFiles(jsonPath, envPath))
	t.Cleanup(func() {
		mu.Lock()
		values = defaultValues()
		mu.Unlock()
	})
}

func TestDefaults(t *testing.T) {
	useFiles(t, "", "")

	assert.Equal(t, "postgres", DatabaseDriver())
	assert.Equal(t, "localhost", DBHost())
	assert.Equal(t, "5432", DBPort())
	assert.Equal(t, "local", AppEnv())
	assert.Equal(t, "8080", AppPort())
	assert.Empty(t, SupabaseSchema())
	assert.Equal(t, "host=localhost user=postgres password= dbname=postgres port=5432 sslmode=prefer", DatabaseDSN())
}

func TestLayering(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")

	useFiles(t,
		`{"db_host": "json-host", "db_name": "shop", "db_port": 6543}`,
		"# comment\nDB_HOST=env-file-host\nexport DB_USER='maria'\nSUPABASE_URL=\"https://xyz.supabase.co\"\nSUPABASE_SCHEMA=shop\n",
	)

	assert.Equal(t, "db.internal", DBHost(), "process env wins over files")
	assert.Equal(t, "shop", DBName())
	assert.Equal(t, "6543", DBPort())
	assert.Equal(t, "maria", DBUser())
	assert.Equal(t, "https://xyz.supabase.co", SupabaseURL())
	assert.Equal(t, "shop", SupabaseSchema())
}

func TestDatabaseDSN(t *testing.T) {
	tests := []struct {
		name   string
		dotEnv string
		want   string
	}{
		{
			name:   "mysql",
			dotEnv: "DB_DRIVER=mysql\nDB_PASSWORD=secret\nDB_PORT=3306\nDB_NAME=shop",
			want:   "postgres:secret@tcp(localhost:3306)/shop?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name:   "sqlserver",
			dotEnv: "DB_DRIVER=sqlserver\nDB_USER=sa\nDB_PASSWORD=pw\nDB_PORT=1433\nDB_NAME=shop",
			want:   "sqlserver://sa:pw@localhost:1433?database=shop",
		},
		{
			name:   "sqlite",
			dotEnv: "DB_DRIVER=SQLite",
			want:   "crud.db",
		},
		{
			name:   "override",
			dotEnv: "DB_DRIVER=postgres\nDATABASE_DSN=postgres://u:p@h:1/d",
			want:   "postgres://u:p@h:1/d",
		},
		{
			name:   "unknown driver falls back to postgres",
			dotEnv: "DB_DRIVER=oracle\nDB_HOST=h",
			want:   "host=h user=postgres password= dbname=postgres port=5432 sslmode=prefer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFiles(t, "", tt.dotEnv)
			assert.Equal(t, tt.want, DatabaseDSN())
		})
	}
}

func TestGetFallback(t *testing.T) {
	useFiles(t, "", "CUSTOM_KEY=value")

	assert.Equal(t, "value", Get("CUSTOM_KEY", "x"))
	assert.Equal(t, "x", Get("MISSING_KEY", "x"))
}
