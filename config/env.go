package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	defaultDatabaseDriver = "postgres"
	defaultDBHost         = "localhost"
	defaultDBName         = "postgres"
	defaultDBUser         = "postgres"
	defaultDBPort         = "5432"
	defaultSQLiteDSN      = "crud.db"
	defaultAppPort        = "8080"
	defaultAppEnv         = "local"
)

// keys is every setting this module reads. Only these are picked up from the
// process environment so unrelated variables never leak into Get.
var keys = []string{
	"APP_ENV", "APP_PORT",
	"DB_DRIVER", "DB_HOST", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_PORT", "DATABASE_DSN",
	"SUPABASE_URL", "SUPABASE_KEY", "SUPABASE_SCHEMA",
}

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json, then .env, then the process environment.
// Later sources win. It runs once per process.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":         defaultAppEnv,
		"APP_PORT":        defaultAppPort,
		"DB_DRIVER":       defaultDatabaseDriver,
		"DB_HOST":         defaultDBHost,
		"DB_NAME":         defaultDBName,
		"DB_USER":         defaultDBUser,
		"DB_PASSWORD":     "",
		"DB_PORT":         defaultDBPort,
		"DATABASE_DSN":    "",
		"SUPABASE_URL":    "",
		"SUPABASE_KEY":    "",
		"SUPABASE_SCHEMA": "",
	}
}

// ── Database ─────────────────────────────────────────────────────────────────

func DatabaseDriver() string {
	_ = Load()

	driver := strings.ToLower(get("DB_DRIVER", defaultDatabaseDriver))
	switch driver {
	case "sqlite", "postgres", "mysql", "sqlserver":
		return driver
	default:
		return defaultDatabaseDriver
	}
}

func DBHost() string     { _ = Load(); return get("DB_HOST", defaultDBHost) }
func DBName() string     { _ = Load(); return get("DB_NAME", defaultDBName) }
func DBUser() string     { _ = Load(); return get("DB_USER", defaultDBUser) }
func DBPassword() string { _ = Load(); return get("DB_PASSWORD", "") }
func DBPort() string     { _ = Load(); return get("DB_PORT", defaultDBPort) }

// DatabaseDSN returns DATABASE_DSN when set, otherwise a DSN assembled from
// the DB_* parts in the format the selected driver expects.
func DatabaseDSN() string {
	_ = Load()

	if override := get("DATABASE_DSN", ""); override != "" {
		return override
	}

	host, name, user, pass, port := DBHost(), DBName(), DBUser(), DBPassword(), DBPort()

	switch DatabaseDriver() {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", user, pass, host, port, name)
	case "sqlserver":
		return fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s", user, pass, host, port, name)
	case "sqlite":
		return defaultSQLiteDSN
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=prefer", host, user, pass, name, port)
	}
}

// ── Hosted backend ───────────────────────────────────────────────────────────

func SupabaseURL() string { _ = Load(); return get("SUPABASE_URL", "") }
func SupabaseKey() string { _ = Load(); return get("SUPABASE_KEY", "") }

// SupabaseSchema is the Postgres schema the hosted client reads, writes and
// watches. Empty selects the project default.
func SupabaseSchema() string { _ = Load(); return get("SUPABASE_SCHEMA", "") }

// ── App ──────────────────────────────────────────────────────────────────────

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mergeEnviron(loaded)

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case float64:
			s = fmt.Sprint(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func mergeEnviron(out map[string]string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			out[key] = strings.TrimSpace(v)
		}
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
// Keys from .env and app.json are available after config.Load().
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}
