package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SanitizeFilename strips any path components from a client-supplied name
// and rejects names that would escape the owner's directory
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return "file"
	}

	return name
}

// UniqueFilename returns a path that does not exist yet, derived from the
// requested path by appending " (k)" before the extension, k counting up
// from 1. Used at assembly time and again by the transcoder when it changes
// extensions.
func UniqueFilename(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)

	for counter := 1; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, counter, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// ReplaceExt swaps the extension of a path (newExt includes the dot)
func ReplaceExt(path, newExt string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + newExt
}
