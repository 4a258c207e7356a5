// Package paths provides filesystem path helpers used when comparing
// manifest locations and resolving path dependencies.
package paths

import (
	"os"
	"path/filepath"
)

// Canonicalize converts a path to an absolute, symlink-free form.
// - Makes the path absolute
// - Resolves symlinks to real paths
// - Cleans redundant separators and dot segments
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// If the path doesn't exist yet, use the absolute form as-is
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", err
	}

	return resolved, nil
}

// Same reports whether two paths refer to the same location after
// canonicalization. Used to detect a project depending on itself by path.
func Same(a, b string) (bool, error) {
	ca, err := Canonicalize(a)
	if err != nil {
		return false, err
	}
	cb, err := Canonicalize(b)
	if err != nil {
		return false, err
	}
	return ca == cb, nil
}

// Resolve interprets path against base when it is relative.
// Absolute paths are returned cleaned but otherwise untouched.
func Resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// NormalizePath normalizes a path by converting backslashes to forward
// slashes. Recipe sources and glob patterns always use forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
