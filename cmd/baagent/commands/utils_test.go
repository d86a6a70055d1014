// ABOUTME: Tests for shared utility functions used by CLI commands
// ABOUTME: Verifies truncate, formatTime, validation helpers and JSON output

package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short string unchanged", input: "hello", maxLen: 10, want: "hello"},
		{name: "exact length unchanged", input: "hello", maxLen: 5, want: "hello"},
		{name: "long string truncated", input: "hello world", maxLen: 8, want: "hello..."},
		{name: "very short maxLen", input: "hello", maxLen: 2, want: "he"},
		{name: "maxLen equals 3", input: "hello", maxLen: 3, want: "hel"},
		{name: "empty string", input: "", maxLen: 10, want: ""},
		{name: "unicode cut on runes", input: "你好世界！", maxLen: 3, want: "你好世"},
		{name: "unicode truncated with ellipsis", input: "你好世界你好世界", maxLen: 5, want: "你好..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		input    time.Time
		contains string
	}{
		{name: "just now (seconds ago)", input: now.Add(-30 * time.Second), contains: "just now"},
		{name: "minutes ago", input: now.Add(-5 * time.Minute), contains: "m ago"},
		{name: "hours ago", input: now.Add(-3 * time.Hour), contains: "h ago"},
		{name: "days ago", input: now.Add(-2 * 24 * time.Hour), contains: "d ago"},
		{name: "weeks ago (shows date)", input: now.Add(-14 * 24 * time.Hour), contains: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTime(tt.input)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("formatTime() = %q, want to contain %q", got, tt.contains)
			}
		})
	}
}

func TestValidatePositiveInt(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{n: 1, wantErr: false},
		{n: 100, wantErr: false},
		{n: 0, wantErr: true},
		{n: -5, wantErr: true},
	}

	for _, tt := range tests {
		err := validatePositiveInt(tt.n, "limit")
		if (err != nil) != tt.wantErr {
			t.Errorf("validatePositiveInt(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
	}
}

func TestValidateOneOf(t *testing.T) {
	if err := validateOneOf("yaml", "--as", "yaml", "markdown"); err != nil {
		t.Errorf("validateOneOf(yaml) error = %v", err)
	}
	err := validateOneOf("csv", "--as", "yaml", "markdown")
	if err == nil || !strings.Contains(err.Error(), "--as") {
		t.Errorf("validateOneOf(csv) error = %v, want --as error", err)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]int{"chunks": 3}); err != nil {
		t.Fatalf("printJSON() error = %v", err)
	}
	if got := buf.String(); got != "{\n  \"chunks\": 3\n}\n" {
		t.Errorf("printJSON() = %q", got)
	}
}
