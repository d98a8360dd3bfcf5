// Package helix holds process-wide defaults shared by the config, db and cmd packages.
package helix

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName      = "helix"
	DefaultDatabaseType = "libsql"
	DefaultServerAddr   = ":5000"
	DefaultUIOrigin     = "http://localhost:5173"
)

var (
	DefaultConfigPath  = filepath.Join(userConfigDir(), DefaultAppName)
	DefaultDatabaseDir = filepath.Join(userDataDir(), DefaultAppName)
	DefaultDatabaseDSN = "file:" + filepath.Join(DefaultDatabaseDir, "helix.db")
)

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func userDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}
