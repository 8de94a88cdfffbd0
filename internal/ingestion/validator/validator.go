// Package validator checks uploads before they reach storage and returns
// per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

const maxNameLength = 255

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Unwrap classifies every validation failure as a bad file.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrBadFile
}

// ValidateUpload checks the document name and content. Content must be
// non-empty UTF-8 text; maxSize <= 0 disables the size check.
func ValidateUpload(name string, content []byte, maxSize int64) error {
	size := int64(len(content))
	errs := make(map[string]string)

	switch {
	case strings.TrimSpace(name) == "":
		errs["name"] = "filename is required"
	case len(name) > maxNameLength:
		errs["name"] = fmt.Sprintf("filename must be at most %d characters", maxNameLength)
	case strings.Contains(name, ".."):
		errs["name"] = "bad filename: " + name
	case strings.ContainsAny(name, `/\`):
		errs["name"] = "bad filename: " + name
	}

	switch {
	case size <= 0:
		errs["content"] = "file is empty"
	case maxSize > 0 && size > maxSize:
		errs["content"] = fmt.Sprintf("file must be at most %d bytes", maxSize)
	case !utf8.Valid(content):
		errs["content"] = "file is not valid UTF-8 text"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
