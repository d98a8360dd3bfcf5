package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// LibSQLEmbeddedConfig holds configuration for embedded libsql connections
type LibSQLEmbeddedConfig struct {
	DSN string // "file:<path>" for embedded, libsql:// or https:// for remote
}

// ConnectToDB opens the durable log database.
func ConnectToDB(dsn string, logger zerolog.Logger) (*sql.DB, error) {
	return ConnectToDBWithConfig(&LibSQLEmbeddedConfig{DSN: dsn}, logger)
}

func ConnectToDBWithConfig(config *LibSQLEmbeddedConfig, logger zerolog.Logger) (*sql.DB, error) {
	dsn := config.DSN
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	if path, ok := embeddedPath(dsn); ok {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logger.Info().Str("path", path).Msg("Database not found, creating a new one")
		}
	}

	logger.Info().Str("dsn", redact(dsn)).Msg("Connecting to libsql")

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func ping(db *sql.DB) error {
	var result int
	if err := db.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("basic connectivity test failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("basic connectivity test failed: unexpected result %d", result)
	}
	return nil
}

// embeddedPath extracts the file path of a file: DSN. In-memory DSNs report false.
func embeddedPath(dsn string) (string, bool) {
	if !strings.HasPrefix(dsn, "file:") {
		return "", false
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return "", false
	}
	return path, true
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "authToken="); i >= 0 {
		return dsn[:i] + "authToken=REDACTED"
	}
	return dsn
}
