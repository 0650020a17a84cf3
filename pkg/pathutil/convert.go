// Package pathutil provides utilities for converting between absolute and
// relative paths, and for normalizing a filesystem path into the canonical
// "cpath" form used as the file-scope identity throughout the AST index.
//
// Architecture Pattern:
// The AST index uses absolute, slash-normalized paths internally (cpath) for
// consistency and to avoid ambiguity across platforms. User-facing output
// should use relative paths for readability and portability. This package
// provides the conversion layer between internal and external representations.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// Canonical normalizes a filesystem path into the platform-agnostic cpath
// form: absolute (resolved against rootDir when path is relative), cleaned,
// and slash-separated regardless of host OS.
func Canonical(path, rootDir string) string {
	if path == "" {
		return path
	}
	if !filepath.IsAbs(path) && rootDir != "" {
		path = filepath.Join(rootDir, path)
	}
	path = filepath.Clean(path)
	return filepath.ToSlash(path)
}
