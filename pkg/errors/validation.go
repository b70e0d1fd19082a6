package errors

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	maxNameLength = 200
	maxIDLength   = 128
	maxPathLength = 500
)

// treeIDRegex matches storage keys: letters, digits, dash, underscore, dot.
var treeIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// DateLayouts are the accepted partial ISO date forms, most specific first.
var DateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ValidateName validates a member display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidMember, "name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidMember, "name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidMember, "name contains invalid control characters")
		}
	}
	return nil
}

// ValidateMemberID validates an opaque member identifier.
// Ids are not parsed; they only need to be printable and bounded.
func ValidateMemberID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidMember, "member id cannot be empty")
	}
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidMember, "member id too long (max %d characters)", maxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidMember, "member id contains invalid characters")
		}
	}
	return nil
}

// ValidateTreeID validates a tree identifier. Tree ids become file names and
// storage keys, so they are restricted to a safe character set.
func ValidateTreeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidTree, "tree id cannot be empty")
	}
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidTree, "tree id too long (max %d characters)", maxIDLength)
	}
	if strings.Contains(id, "..") || !treeIDRegex.MatchString(id) {
		return New(ErrCodeInvalidTree, "invalid tree id: %q", id)
	}
	return nil
}

// ValidateDate validates an optional ISO date (YYYY-MM-DD, YYYY-MM or YYYY).
// The empty string means unknown and is valid.
func ValidateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, ok := ParseDate(s); !ok {
		return New(ErrCodeInvalidDate, "invalid date %q (want YYYY-MM-DD, YYYY-MM or YYYY)", s)
	}
	return nil
}

// ParseDate parses a partial ISO date against [DateLayouts].
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range DateLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidatePath validates a relative file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
