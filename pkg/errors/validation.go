package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxNameLength bounds element names coming from imported rows.
const maxNameLength = 512

// ValidateName validates an activity or port name read from an import source.
// Names must be non-empty after trimming, reasonably short, and free of
// control characters (which would corrupt rendered labels).
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}

	return nil
}

// ValidateProjectName validates a project key used by the model stores.
// Project names become file names and Redis/Mongo keys, so the rules are
// conservative:
//   - No empty names
//   - Maximum length of 128 characters
//   - Letters, digits, dash, underscore and dot only
//   - No leading dot and no ".." sequence
func ValidateProjectName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "project name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "project name too long (max 128 characters)")
	}

	if strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "project name cannot start with a dot or contain %q", "..")
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return New(ErrCodeInvalidInput, "project name contains invalid character %q", r)
		}
	}

	return nil
}

// ValidateSourcePath validates an import source path and returns its
// lower-cased extension. The path must be non-empty and carry an extension.
func ValidateSourcePath(path string) (string, error) {
	if path == "" {
		return "", New(ErrCodeInvalidInput, "source path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' {
			return "", New(ErrCodeInvalidInput, "source path contains invalid characters")
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", New(ErrCodeInvalidFmt, "source %q has no file extension", filepath.Base(path))
	}
	return ext, nil
}
