package filesystem

import (
	"path/filepath"
	"strings"
)

// FolderName returns the last element of path, ignoring trailing separators.
func FolderName(path string) string {
	return filepath.Base(filepath.Clean(path))
}

// ParentDirectory returns the directory containing path.
func ParentDirectory(path string) string {
	return filepath.Dir(filepath.Clean(path))
}

// Extension returns the final extension of path including the dot.
func Extension(path string) string {
	return filepath.Ext(path)
}

// FileNameWithoutExtension returns the base name of path without its final extension.
func FileNameWithoutExtension(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Combine joins path elements with the host separator.
func Combine(elem ...string) string {
	return filepath.Join(elem...)
}

// EntryName joins archive path segments with forward slashes, skipping empty ones.
func EntryName(prefix, name string) string {
	prefix = strings.ReplaceAll(prefix, `\`, "/")
	name = strings.ReplaceAll(name, `\`, "/")
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// RelativeSlash returns target relative to root using forward slashes.
func RelativeSlash(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
