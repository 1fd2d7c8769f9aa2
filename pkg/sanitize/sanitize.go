// Package sanitize provides filesystem-safe name helpers.
package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
)

// unsafe matches characters that are not portable across the supported
// filesystems.
var unsafe = regexp.MustCompile(`[\\/*?:"<>|]`)

// Filename replaces filesystem-unsafe characters in a title with "_".
// An empty or all-unsafe title still yields a usable name.
func Filename(title string) string {
	safe := unsafe.ReplaceAllString(title, "_")
	safe = strings.TrimSpace(safe)

	if safe == "" {
		return "untitled"
	}

	return safe
}

// IsBaseName reports whether name is a bare file name without any path
// traversal. Used to guard the file-serving route.
func IsBaseName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	return filepath.Base(name) == name
}
