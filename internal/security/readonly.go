package security

import (
	"context"
	"fmt"
	"sync"

	apperrors "stock-academy/internal/errors"
)

// OperationType represents the type of operation.
type OperationType string

const (
	// Read operations
	OpRead OperationType = "READ"

	// Write operations (blocked in read-only mode)
	OpBuy          OperationType = "BUY"
	OpSell         OperationType = "SELL"
	OpReset        OperationType = "RESET"
	OpRequestReset OperationType = "REQUEST_RESET"
	OpGrade        OperationType = "GRADE"
)

// ReadOnlyError represents an error when attempting a write operation in read-only mode.
type ReadOnlyError struct {
	Operation OperationType
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%s is not allowed: read-only mode is enabled", OperationDescription(e.Operation))
}

func (e *ReadOnlyError) Unwrap() error {
	return apperrors.ErrReadOnlyMode
}

// AccessController manages read-only mode and operation permissions.
type AccessController struct {
	readOnly    bool
	auditLogger *AuditLogger
	mu          sync.RWMutex
}

// NewAccessController creates a new access controller. auditLogger may be nil.
func NewAccessController(readOnly bool, auditLogger *AuditLogger) *AccessController {
	return &AccessController{
		readOnly:    readOnly,
		auditLogger: auditLogger,
	}
}

// IsReadOnly returns whether read-only mode is enabled.
func (ac *AccessController) IsReadOnly() bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.readOnly
}

// SetReadOnly sets the read-only mode.
func (ac *AccessController) SetReadOnly(readOnly bool) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.readOnly = readOnly
}

// CheckPermission checks if an operation is allowed.
func (ac *AccessController) CheckPermission(ctx context.Context, op OperationType) error {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	if !ac.readOnly || !isWriteOperation(op) {
		return nil
	}

	if ac.auditLogger != nil {
		ac.auditLogger.LogReadOnlyViolation(ctx, string(op))
	}
	return &ReadOnlyError{Operation: op}
}

// isWriteOperation returns true if the operation modifies state.
func isWriteOperation(op OperationType) bool {
	for _, w := range WriteOperations() {
		if op == w {
			return true
		}
	}
	return false
}

// WriteOperations returns a list of all write operations.
func WriteOperations() []OperationType {
	return []OperationType{
		OpBuy,
		OpSell,
		OpReset,
		OpRequestReset,
		OpGrade,
	}
}

// OperationDescription returns a human-readable description of an operation.
func OperationDescription(op OperationType) string {
	switch op {
	case OpRead:
		return "Read data"
	case OpBuy:
		return "Buy shares"
	case OpSell:
		return "Sell shares"
	case OpReset:
		return "Reset portfolio"
	case OpRequestReset:
		return "Request an additional reset"
	case OpGrade:
		return "Grade a flashcard review"
	default:
		return string(op)
	}
}
