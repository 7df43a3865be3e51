// Package security provides audit logging, read-only mode, and input validation.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// Trading events
	AuditTradeExecuted AuditEventType = "TRADE_EXECUTED"
	AuditTradeRejected AuditEventType = "TRADE_REJECTED"

	// Reset events
	AuditPortfolioReset AuditEventType = "PORTFOLIO_RESET"
	AuditResetDenied    AuditEventType = "RESET_DENIED"
	AuditResetRequested AuditEventType = "RESET_REQUESTED"

	// Study events
	AuditCardReviewed AuditEventType = "CARD_REVIEWED"

	// Security events
	AuditReadOnlyViolation AuditEventType = "READ_ONLY_VIOLATION"
	AuditInputValidation   AuditEventType = "INPUT_VALIDATION"

	// Storage events
	AuditPersistFailed AuditEventType = "PERSIST_FAILED"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	Symbol    string                 `json:"symbol,omitempty"`
	TermID    string                 `json:"term_id,omitempty"`
	TradeID   string                 `json:"trade_id,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// AuditLogger writes audit events as JSON lines.
type AuditLogger struct {
	writer    io.Writer
	closer    io.Closer
	mu        sync.Mutex
	sessionID string
	now       func() time.Time
}

// AuditConfig holds audit logger configuration.
type AuditConfig struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	home, _ := os.UserHomeDir()
	return AuditConfig{
		LogDir:     filepath.Join(home, ".config", "stock-academy", "audit"),
		MaxSize:    20,
		MaxBackups: 10,
		MaxAge:     365, // Keep audit logs for 1 year
		Compress:   true,
	}
}

// NewAuditLogger creates an audit logger writing to a rotating file in cfg.LogDir.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	al := NewAuditLoggerWithWriter(writer)
	al.closer = writer
	return al, nil
}

// NewAuditLoggerWithWriter creates an audit logger writing to w.
func NewAuditLoggerWithWriter(w io.Writer) *AuditLogger {
	return &AuditLogger{
		writer:    w,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
}

// SessionID returns the id stamped on every event of this logger.
func (al *AuditLogger) SessionID() string {
	return al.sessionID
}

// Log logs an audit event.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	al.mu.Lock()
	defer al.mu.Unlock()

	event.Timestamp = al.now().UTC()
	event.SessionID = al.sessionID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}

	if _, err := al.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}

	return nil
}

// LogTrade logs an executed or rejected paper trade.
func (al *AuditLogger) LogTrade(ctx context.Context, tradeID, symbol, side string, shares, price float64, err error) error {
	event := AuditEvent{
		EventType: AuditTradeExecuted,
		TradeID:   tradeID,
		Symbol:    symbol,
		Action:    side,
		Success:   err == nil,
		Details: map[string]interface{}{
			"shares": shares,
			"price":  price,
		},
	}
	if err != nil {
		event.EventType = AuditTradeRejected
		event.ErrorMsg = err.Error()
	}
	return al.Log(ctx, event)
}

// LogReset logs a granted or denied portfolio reset.
func (al *AuditLogger) LogReset(ctx context.Context, granted bool, resetCount, maxResets int) error {
	event := AuditEvent{
		EventType: AuditPortfolioReset,
		Action:    "reset",
		Success:   granted,
		Details: map[string]interface{}{
			"reset_count": resetCount,
			"max_resets":  maxResets,
		},
	}
	if !granted {
		event.EventType = AuditResetDenied
		event.ErrorMsg = "reset allowance exhausted"
	}
	return al.Log(ctx, event)
}

// LogResetRequest logs a request for an additional reset.
func (al *AuditLogger) LogResetRequest(ctx context.Context, requestID, reason string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditResetRequested,
		Action:    "request_reset",
		Success:   true,
		Details: map[string]interface{}{
			"request_id": requestID,
			"reason":     reason,
		},
	})
}

// LogReview logs a graded flashcard review.
func (al *AuditLogger) LogReview(ctx context.Context, termID string, quality, interval int, easeFactor float64) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditCardReviewed,
		TermID:    termID,
		Action:    "grade",
		Success:   true,
		Details: map[string]interface{}{
			"quality":       quality,
			"interval_days": interval,
			"ease_factor":   easeFactor,
		},
	})
}

// LogReadOnlyViolation logs an attempt to perform a write operation in read-only mode.
func (al *AuditLogger) LogReadOnlyViolation(ctx context.Context, operation string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditReadOnlyViolation,
		Action:    operation,
		Success:   false,
		ErrorMsg:  "operation blocked: read-only mode enabled",
	})
}

// LogInputValidation logs an input validation failure.
func (al *AuditLogger) LogInputValidation(ctx context.Context, field, value, reason string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditInputValidation,
		Success:   false,
		ErrorMsg:  reason,
		Details: map[string]interface{}{
			"field": field,
			"value": value,
		},
	})
}

// LogPersistFailure logs a save or archive write that failed after retries.
// target names what was being written, such as "portfolio" or "trade".
func (al *AuditLogger) LogPersistFailure(ctx context.Context, target, id string, err error) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditPersistFailed,
		Action:    "persist_" + target,
		Success:   false,
		ErrorMsg:  err.Error(),
		Details: map[string]interface{}{
			"id": id,
		},
	})
}

// Close closes the underlying file, if any.
func (al *AuditLogger) Close() error {
	if al.closer == nil {
		return nil
	}
	return al.closer.Close()
}
