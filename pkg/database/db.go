package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/config"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrUnsupportedDriver is returned for a driver name with no dialector.
var ErrUnsupportedDriver = errors.New("database: unsupported driver")

// Option configures a Connector.
type Option func(*Connector)

// WithPlugins installs GORM plugins on every connection the Connector opens.
func WithPlugins(plugins ...gorm.Plugin) Option {
	return func(c *Connector) {
		c.plugins = append(c.plugins, plugins...)
	}
}

// Connector hands out one fresh connection per logical operation. There is
// no pool: every Session opens, uses and closes its own connection.
//
// A Connector is immutable after New and safe for concurrent use; concurrent
// sessions never share a connection.
type Connector struct {
	driver  string
	dsn     string
	plugins []gorm.Plugin
}

// New validates driver and returns a Connector for dsn. No connection is
// opened until the first Session.
func New(driver, dsn string, opts ...Option) (*Connector, error) {
	if _, err := buildDialector(driver, dsn); err != nil {
		return nil, err
	}

	c := &Connector{
		driver:  driver,
		dsn:     dsn,
		plugins: []gorm.Plugin{queryMetrics{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromConfig builds a Connector from the DB_* settings.
func FromConfig(opts ...Option) (*Connector, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return New(config.DatabaseDriver(), config.DatabaseDSN(), opts...)
}

// Driver returns the dialect name the Connector was built for.
func (c *Connector) Driver() string { return c.driver }

// Session runs fn inside a transaction on a connection of its own.
//
// The transaction commits only if fn returns nil. Any error from fn, or a
// panic, rolls it back. The connection is closed on every exit path.
func (c *Connector) Session(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, sqlDB, err := c.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			logger.Warn("database: close connection", "driver", c.driver, "error", cerr)
		}
	}()

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("database: begin: %w", tx.Error)
	}

	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("database: rollback", "driver", c.driver, "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("database: commit: %w", err)
	}
	done = true
	return nil
}

// Ping opens a connection and returns the server's version string.
func (c *Connector) Ping(ctx context.Context) (string, error) {
	var version string
	err := c.Session(ctx, func(tx *gorm.DB) error {
		return tx.Raw(versionQuery(c.driver)).Scan(&version).Error
	})
	if err != nil {
		return "", fmt.Errorf("database: ping: %w", err)
	}
	return version, nil
}

func (c *Connector) open() (*gorm.DB, *sql.DB, error) {
	dialector, err := buildDialector(c.driver, c.dsn)
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent), // failures go through pkg/logger
		SkipDefaultTransaction: true,                                          // Session owns the transaction
	})
	if err != nil {
		return nil, nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, p := range c.plugins {
		if err := db.Use(p); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("database: plugin %s: %w", p.Name(), err)
		}
	}

	return db, sqlDB, nil
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w %q (supported: sqlite, postgres, mysql, sqlserver)", ErrUnsupportedDriver, driver)
	}
}

func versionQuery(driver string) string {
	switch driver {
	case "sqlite":
		return "SELECT sqlite_version()"
	case "sqlserver":
		return "SELECT @@VERSION"
	default:
		return "SELECT version()"
	}
}
