// Package remotepath computes the remote keys under which deployed files are
// stored. All keys use forward slashes regardless of the local separator.
package remotepath

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrRelativePath indicates a file could not be expressed relative to the
// configured base directory.
var ErrRelativePath = errors.New("file is not resolvable under the base directory")

// NormalizePrefix strips all leading and trailing separators from a remote
// directory prefix, then re-applies exactly one trailing separator.
// An empty or separator-only prefix normalizes to the empty string.
// The operation is idempotent.
func NormalizePrefix(dir string) string {
	dir = strings.ReplaceAll(strings.TrimSpace(dir), "\\", "/")
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// DestinationKey combines a normalized prefix with the file's path relative
// to baseDir. The returned key never begins with a separator.
func DestinationKey(prefix, baseDir, file string) (string, error) {
	rel, err := filepath.Rel(baseDir, file)
	if err != nil {
		return "", ErrRelativePath
	}

	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", ErrRelativePath
	}

	key := prefix + strings.TrimLeft(rel, "/")
	return strings.TrimLeft(key, "/"), nil
}
