package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/logger"
)

func TestNewParsesLevels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		"Warn":     zerolog.WarnLevel,
		"ERROR":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}

	for input, want := range cases {
		input := input
		want := want
		t.Run("level_"+input, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := logger.New("production", input, &buf)
			if err != nil {
				t.Fatalf("New returned error for level %q: %v", input, err)
			}
			if got := log.GetLevel(); got != want {
				t.Fatalf("logger level = %s, want %s", got, want)
			}
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := logger.New("production", "not-a-level"); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestNewEmitsJSONToWriters(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New("production", "info", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Info().Str("rid", "abc-1").Msg("submission accepted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected level info, got %v", entry["level"])
	}
	if entry["message"] != "submission accepted" {
		t.Fatalf("expected message field, got %v", entry["message"])
	}
	if entry["rid"] != "abc-1" {
		t.Fatalf("expected rid field, got %v", entry["rid"])
	}
	if _, ok := entry["time"]; !ok {
		t.Fatalf("expected timestamp field, got %v", entry)
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New("production", "warn", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info event must be filtered at warn level, got %q", buf.String())
	}

	log.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatalf("warn event must pass at warn level")
	}
}

func TestComponentTagsChildLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New("production", "info", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := logger.Component(log, "http")
	child.Info().Msg("listening")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "http" {
		t.Fatalf("expected component http, got %v", entry["component"])
	}
}

func TestComponentNilParent(t *testing.T) {
	child := logger.Component(nil, "http")
	if child.GetLevel() != zerolog.Disabled {
		t.Fatalf("nil parent must yield a disabled logger, got %s", child.GetLevel())
	}
}
