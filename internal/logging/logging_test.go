package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerWithConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "academy.log")
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", File: true, FilePath: path, MaxSize: 1})

	logger.Info().Msg("dropped")
	logger.Warn().Str("symbol", "AAPL").Msg("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, want 1: %s", len(lines), data)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "kept" || entry["symbol"] != "AAPL" || entry["time"] == nil {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLoggerWithConfig_NoWriters(t *testing.T) {
	logger := NewLoggerWithConfig(LogConfig{Level: "debug"})
	if logger.GetLevel() != zerolog.Disabled {
		t.Errorf("logger without writers level = %v, want disabled", logger.GetLevel())
	}
}

func TestEventHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := WithOperation(zerolog.New(&buf), "academy paper buy")

	LogTrade(WithSymbol(logger, "MSFT"), "t-1", "buy", 2, 400, 99200)
	LogReset(logger, false, 3, 3)
	LogReview(WithTerm(logger, "etf"), 4, 6, 2.5, time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC))

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]interface{}
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e["operation"] != "academy paper buy" {
			t.Errorf("entry missing operation: %v", e)
		}
	}
	if entries[0]["event"] != "trade" || entries[0]["cash"] != 99200.0 || entries[0]["symbol"] != "MSFT" {
		t.Errorf("trade entry = %v", entries[0])
	}
	if entries[1]["level"] != "warn" || entries[1]["granted"] != false {
		t.Errorf("denied reset entry = %v", entries[1])
	}
	if entries[2]["term"] != "etf" || entries[2]["interval_days"] != 6.0 {
		t.Errorf("review entry = %v", entries[2])
	}
}
