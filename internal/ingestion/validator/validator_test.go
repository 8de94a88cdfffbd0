package validator

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name       string
		docName    string
		content    string
		wantFields []string
	}{
		{"valid", "notes.txt", "hello text", nil},
		{"valid multibyte", "notes.txt", "café naïve", nil},
		{"empty content", "notes.txt", "", []string{"content"}},
		{"too big", "notes.txt", strings.Repeat("a", 101), []string{"content"}},
		{"latin-1 byte", "notes.txt", "caf\xe9", []string{"content"}},
		{"truncated sequence", "notes.txt", "abc\xe2\x82", []string{"content"}},
		{"missing name", "  ", "hello", []string{"name"}},
		{"parent traversal", "../etc/passwd", "hello", []string{"name"}},
		{"dots inside name", "a..b", "hello", []string{"name"}},
		{"separator", "dir/notes.txt", "hello", []string{"name"}},
		{"windows separator", `dir\notes.txt`, "hello", []string{"name"}},
		{"long name", strings.Repeat("a", 256), "hello", []string{"name"}},
		{"both", "", "", []string{"name", "content"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.docName, []byte(tt.content), 100)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, apperrors.ErrBadFile) {
				t.Errorf("err = %v, want ErrBadFile", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if verr.Fields[f] == "" {
					t.Errorf("missing field %q in %v", f, verr.Fields)
				}
			}
		})
	}
}

func TestValidateUploadNoSizeLimit(t *testing.T) {
	if err := ValidateUpload("big.txt", []byte(strings.Repeat("a", 4096)), 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"name": "bad", "content": "empty"}}
	if got := err.Error(); got != "content: empty; name: bad" {
		t.Errorf("Error() = %q", got)
	}
}
