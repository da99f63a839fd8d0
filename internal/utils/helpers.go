// Package utils provides shared helper functions.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// GetDataPath returns the kanobot data directory (~/.kanobot).
func GetDataPath() string {
	home, _ := os.UserHomeDir()
	p := filepath.Join(home, ".kanobot")
	os.MkdirAll(p, 0o755)
	return p
}

// GetWorkspacePath resolves the workspace path, expanding a leading ~ and
// defaulting to ~/.kanobot/workspace.
func GetWorkspacePath(workspace string) string {
	if workspace != "" {
		if strings.HasPrefix(workspace, "~") {
			home, _ := os.UserHomeDir()
			workspace = filepath.Join(home, workspace[1:])
		}
		os.MkdirAll(workspace, 0o755)
		return workspace
	}
	p := filepath.Join(GetDataPath(), "workspace")
	os.MkdirAll(p, 0o755)
	return p
}

// SafeFilename converts a string to a safe filename by replacing unsafe
// characters.
func SafeFilename(name string) string {
	unsafe := `<>:"/\|?*`
	for _, c := range unsafe {
		name = strings.ReplaceAll(name, string(c), "_")
	}
	return strings.TrimSpace(name)
}

// TruncateString truncates s to maxLen, appending suffix when truncated.
func TruncateString(s string, maxLen int, suffix string) string {
	if len(s) <= maxLen {
		return s
	}
	if suffix == "" {
		suffix = "..."
	}
	cutoff := maxLen - len(suffix)
	if cutoff < 0 {
		cutoff = 0
	}
	return s[:cutoff] + suffix
}
