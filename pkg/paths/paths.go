// Package paths resolves the engine's data and log directories.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvScribeDataDir = "SCRIBE_DATA_DIR"
	EnvScribeLogDir  = "SCRIBE_LOG_DIR"
)

// DataBaseDir returns the root under which session directories live.
func DataBaseDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvScribeDataDir)); dir != "" {
		return filepath.Clean(expandHomePath(dir))
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".scribe", "sessions")
	}
	return filepath.Join(".scribe", "sessions")
}

// LogsBaseDir returns the root for structured engine logs.
func LogsBaseDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvScribeLogDir)); dir != "" {
		return filepath.Clean(expandHomePath(dir))
	}
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".scribe", "logs")
	}
	return filepath.Join(".scribe", "logs")
}

// SessionDir returns one session's directory under the data root.
func SessionDir(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return DataBaseDir()
	}
	return filepath.Join(DataBaseDir(), sessionID)
}

func expandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
