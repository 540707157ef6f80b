package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("LESSON_TEST_SET", "value")
	t.Setenv("LESSON_TEST_EMPTY", "")

	if got := GetEnvOrDefault("LESSON_TEST_SET", "fallback"); got != "value" {
		t.Errorf("GetEnvOrDefault() = %q, want %q", got, "value")
	}
	if got := GetEnvOrDefault("LESSON_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Errorf("GetEnvOrDefault() = %q, want %q", got, "fallback")
	}
}

func TestGetEnvTyped(t *testing.T) {
	t.Setenv("LESSON_TEST_INT", "42")
	t.Setenv("LESSON_TEST_BAD_INT", "forty-two")
	t.Setenv("LESSON_TEST_BOOL", "true")

	if got := GetEnvInt("LESSON_TEST_INT", 1); got != 42 {
		t.Errorf("GetEnvInt() = %d, want 42", got)
	}
	if got := GetEnvInt("LESSON_TEST_BAD_INT", 1); got != 1 {
		t.Errorf("GetEnvInt() = %d, want 1", got)
	}
	if got := GetEnvBool("LESSON_TEST_BOOL", false); !got {
		t.Errorf("GetEnvBool() = false, want true")
	}
	if got := GetEnvBool("LESSON_TEST_UNSET_BOOL", true); !got {
		t.Errorf("GetEnvBool() = false, want default true")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"upper case level", "WARN", "json", false},
		{"invalid level", "loud", "json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && log == nil {
				t.Error("NewLogger() returned nil logger")
			}
		})
	}
}

func TestBlake3Hash(t *testing.T) {
	a, err := Blake3Hash(strings.NewReader("lesson audio"))
	if err != nil {
		t.Fatalf("Blake3Hash() error = %v", err)
	}
	b, err := Blake3Hash(strings.NewReader("lesson audio"))
	if err != nil {
		t.Fatalf("Blake3Hash() error = %v", err)
	}
	c, err := Blake3Hash(strings.NewReader("other audio"))
	if err != nil {
		t.Fatalf("Blake3Hash() error = %v", err)
	}

	if len(a) != 64 {
		t.Errorf("len(hash) = %d, want 64", len(a))
	}
	if a != b {
		t.Errorf("same input hashed differently: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("different input produced the same hash %s", a)
	}
}

func TestBlake3HashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesson1.webm")
	if err := os.WriteFile(path, []byte("lesson audio"), 0644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := Blake3HashFile(path)
	if err != nil {
		t.Fatalf("Blake3HashFile() error = %v", err)
	}
	fromReader, _ := Blake3Hash(strings.NewReader("lesson audio"))
	if fromFile != fromReader {
		t.Errorf("Blake3HashFile() = %s, want %s", fromFile, fromReader)
	}

	if _, err := Blake3HashFile(filepath.Join(t.TempDir(), "missing.webm")); err == nil {
		t.Error("Blake3HashFile() should fail for a missing file")
	}
}
