// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		return zerolog.Nop()
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a configured level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithTerm adds a glossary term to the logger context.
func WithTerm(logger zerolog.Logger, termID string) zerolog.Logger {
	return logger.With().Str("term", termID).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogTrade logs an executed paper trade. The symbol comes from WithSymbol.
func LogTrade(logger zerolog.Logger, tradeID, side string, shares, price, cash float64) {
	logger.Info().
		Str("event", "trade").
		Str("trade_id", tradeID).
		Str("side", side).
		Float64("shares", shares).
		Float64("price", price).
		Float64("cash", cash).
		Msg("Trade executed")
}

// LogReset logs a portfolio reset attempt.
func LogReset(logger zerolog.Logger, granted bool, resetCount, maxResets int) {
	event := logger.Info()
	if !granted {
		event = logger.Warn()
	}
	event.
		Str("event", "reset").
		Bool("granted", granted).
		Int("reset_count", resetCount).
		Int("max_resets", maxResets).
		Msg("Portfolio reset")
}

// LogReview logs a graded flashcard review. The term comes from WithTerm.
func LogReview(logger zerolog.Logger, quality, interval int, easeFactor float64, next time.Time) {
	logger.Info().
		Str("event", "review").
		Int("quality", quality).
		Int("interval_days", interval).
		Float64("ease_factor", easeFactor).
		Time("next_review_at", next).
		Msg("Review graded")
}
