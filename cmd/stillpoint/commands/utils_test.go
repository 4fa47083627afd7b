// ABOUTME: Tests for shared command helpers
// ABOUTME: Verifies string truncation and flag validation
package commands

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"shorter than limit", "short", 10, "short"},
		{"exactly at limit", "exact", 5, "exact"},
		{"needs truncation", "a longer string", 10, "a longe..."},
		{"tiny limit", "abcdef", 2, "ab"},
		{"multibyte safe", "日本語のテキスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestValidatePositiveInt(t *testing.T) {
	if err := validatePositiveInt(3, "--limit"); err != nil {
		t.Errorf("validatePositiveInt(3) error = %v", err)
	}
	if err := validatePositiveInt(0, "--limit"); err == nil {
		t.Error("validatePositiveInt(0) should fail")
	}
	if err := validatePositiveInt(-1, "--limit"); err == nil {
		t.Error("validatePositiveInt(-1) should fail")
	}
}
