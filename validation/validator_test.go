package validation

import (
	"strings"
	"testing"
)

func TestValidateProductID(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain id", "P12345", "P12345", false},
		{"dotted id", "21.3.417", "21.3.417", false},
		{"hyphen and underscore", "abc-123_x", "abc-123_x", false},
		{"empty", "", "", true},
		{"only spaces", "   ", "", true},
		{"inner whitespace", "P1 2345", "", true},
		{"leading whitespace", " P12345", "", true},
		{"cyrillic", "П12345", "", true},
		{"slash", "P1/2345", "", true},
		{"too long", strings.Repeat("a", 65), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateProductID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateProductID(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateProductID(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateProductID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateSearchInput(t *testing.T) {
	v := NewValidator()

	valid := []string{
		"нурофен",
		"Нурофен Экспресс",
		"ibuprofen 400",
		"анальгин-хинин",
	}
	for _, input := range valid {
		if err := v.ValidateSearchInput(input); err != nil {
			t.Errorf("ValidateSearchInput(%q) failed: %v", input, err)
		}
	}

	invalid := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "аб"},
		{"too long", strings.Repeat("a", 101)},
		{"too many words", "a b c d e f g"},
		{"sql injection", "nurofen' or 1=1"},
		{"script tag", "<script>alert(1)</script>"},
		{"path traversal", "../etc/passwd"},
		{"repetition", strings.Repeat("z", 20)},
		{"shell chars", "nurofen `id`"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateSearchInput(tt.input); err == nil {
				t.Errorf("ValidateSearchInput(%q) passed, want error", tt.input)
			}
		})
	}
}
