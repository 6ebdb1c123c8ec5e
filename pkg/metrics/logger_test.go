package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   logrus.Level
		silent bool
		err    bool
	}{
		{"debug", logrus.DebugLevel, false, false},
		{"DEBUG", logrus.DebugLevel, false, false},
		{"info", logrus.InfoLevel, false, false},
		{"warn", logrus.WarnLevel, false, false},
		{"warning", logrus.WarnLevel, false, false},
		{"error", logrus.ErrorLevel, false, false},
		{"trace", logrus.TraceLevel, false, false},
		{"silent", logrus.PanicLevel, true, false},
		{"off", logrus.PanicLevel, true, false},
		{"loud", 0, false, true},
	}

	for _, tt := range tests {
		level, silent, err := ParseLevel(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("ParseLevel(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tt.input, err)
			continue
		}
		if level != tt.want || silent != tt.silent {
			t.Errorf("ParseLevel(%q) = %v/%v, want %v/%v", tt.input, level, silent, tt.want, tt.silent)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if FormatJSON.String() != "json" || FormatText.String() != "text" {
		t.Error("unexpected Format.String")
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG", "debug")
	level, silent, ok := LevelFromEnv()
	if !ok || silent || level != logrus.DebugLevel {
		t.Errorf("LOG=debug: got %v/%v/%v", level, silent, ok)
	}

	t.Setenv("LOG", "bogus")
	if _, _, ok := LevelFromEnv(); ok {
		t.Error("expected ok=false for an invalid level")
	}

	t.Setenv("LOG", "silent")
	if _, silent, ok := LevelFromEnv(); !ok || !silent {
		t.Error("expected silent for LOG=silent")
	}
}

func TestNewLoggerRespectsEnv(t *testing.T) {
	t.Setenv("LOG", "warn")

	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf))
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message should be logged")
	}
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(logrus.InfoLevel), WithFormat(FormatText))

	logger.WithField("conn_id", "abc").Info("handshake complete")

	output := buf.String()
	if !strings.Contains(output, "level=info") {
		t.Errorf("expected level=info, got %q", output)
	}
	if !strings.Contains(output, `msg="handshake complete"`) {
		t.Errorf("expected message, got %q", output)
	}
	if !strings.Contains(output, "conn_id=abc") {
		t.Errorf("expected field, got %q", output)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(logrus.InfoLevel), WithFormat(FormatJSON))

	logger.WithFields(logrus.Fields{"role": "server", "bytes": 42}).Info("record")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry["level"] != "info" {
		t.Errorf("expected level=info, got %v", entry["level"])
	}
	if entry["msg"] != "record" {
		t.Errorf("expected msg=record, got %v", entry["msg"])
	}
	if entry["role"] != "server" {
		t.Errorf("expected role=server, got %v", entry["role"])
	}
	if entry["bytes"] != float64(42) {
		t.Errorf("expected bytes=42, got %v", entry["bytes"])
	}
}

func TestLoggerSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithSilent())
	logger.Error("should not appear")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestNullLogger(t *testing.T) {
	logger := NullLogger()
	logger.Error("discarded")
	logger.WithField("k", "v").Warn("discarded")
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	custom := NullLogger()
	SetLogger(custom)
	if GetLogger() != custom {
		t.Error("expected SetLogger to replace the global logger")
	}
}
