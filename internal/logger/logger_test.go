package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("below-threshold messages were logged: %q", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn and error messages, got: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSecretMasking(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)

	l.Info("auth header was Bearer abcdef1234567890xyz")

	out := buf.String()
	if strings.Contains(out, "abcdef1234567890xyz") {
		t.Errorf("token leaked into log output: %q", out)
	}
}

func TestSensitiveFieldMasking(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)

	l.WithField("api_key", "supersecretvalue123").Info("configured provider")

	out := buf.String()
	if strings.Contains(out, "supersecretvalue123") {
		t.Errorf("sensitive field leaked: %q", out)
	}
}

func TestContentMasking(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)
	l.SetMaskContent(true)

	l.WithField("message", "I had a rough day at work").Info("stored message")

	out := buf.String()
	if strings.Contains(out, "rough day") {
		t.Errorf("conversation content leaked with masking enabled: %q", out)
	}
	if !strings.Contains(out, "chars>") {
		t.Errorf("expected length placeholder, got: %q", out)
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(LevelInfo, &buf)
	child := parent.WithField("session", "s1")

	parent.Info("parent line")
	if strings.Contains(buf.String(), "session=s1") {
		t.Error("parent logger inherited child field")
	}

	buf.Reset()
	child.Info("child line")
	if !strings.Contains(buf.String(), "session=s1") {
		t.Error("child logger missing its field")
	}
}
