package security

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	apperrors "stock-academy/internal/errors"
	"stock-academy/pkg/utils"
)

// Validation limits
const (
	MaxSymbolLength = 20
	MaxTermIDLength = 64
	MaxReasonLength = 280
	MaxShares       = 10000000
	MaxPrice        = 1000000000
)

// Validation patterns
var (
	// Symbol pattern: uppercase letters, numbers, and share class separators
	symbolPattern = regexp.MustCompile(`^[A-Z0-9.&-]{1,20}$`)

	// Term id pattern: lowercase slug as used by the glossary
	termIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

	// SQL injection patterns
	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(union\s+select|select\s+\*|drop\s+table|insert\s+into|delete\s+from|update\s+.*\s+set)`),
		regexp.MustCompile(`(?i)(--|;|\\x00)`),
		regexp.MustCompile(`(?i)(or\s+1\s*=\s*1|and\s+1\s*=\s*1)`),
	}

	// Command injection patterns
	cmdInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[;|$\x60]`),
		regexp.MustCompile(`(?i)(rm\s+-rf|sh\s+-c)`),
	}
)

// InputValidator provides input validation functionality.
type InputValidator struct {
	strictMode bool
}

// NewInputValidator creates a new input validator.
func NewInputValidator(strictMode bool) *InputValidator {
	return &InputValidator{strictMode: strictMode}
}

// ValidateSymbol validates a stock symbol.
func (v *InputValidator) ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	}

	if len(symbol) > MaxSymbolLength {
		return apperrors.NewValidationError("symbol", symbol, fmt.Sprintf("symbol too long (max %d characters)", MaxSymbolLength))
	}

	if !symbolPattern.MatchString(symbol) {
		return apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}

	if v.containsInjection(symbol) {
		return apperrors.NewValidationError("symbol", symbol, "invalid characters detected")
	}

	return nil
}

// ValidateTermID validates a glossary term id.
func (v *InputValidator) ValidateTermID(termID string) error {
	termID = strings.TrimSpace(termID)

	if termID == "" {
		return apperrors.NewValidationError("term", termID, "term cannot be empty")
	}

	if len(termID) > MaxTermIDLength {
		return apperrors.NewValidationError("term", termID, fmt.Sprintf("term too long (max %d characters)", MaxTermIDLength))
	}

	if !termIDPattern.MatchString(termID) {
		return apperrors.NewValidationError("term", termID, "term must be a lowercase slug such as \"p-e-ratio\"")
	}

	return nil
}

// ValidateShares validates a share count. In strict mode counts above
// MaxShares are rejected.
func (v *InputValidator) ValidateShares(shares float64) error {
	if math.IsNaN(shares) || shares <= 0 {
		return apperrors.NewValidationError("shares", shares, "shares must be positive")
	}

	if v.strictMode && shares > MaxShares {
		return apperrors.NewValidationError("shares", shares, fmt.Sprintf("shares exceed maximum allowed (%d)", MaxShares))
	}

	return nil
}

// ValidatePrice validates a price per share. In strict mode prices above
// MaxPrice are rejected.
func (v *InputValidator) ValidatePrice(price float64) error {
	if math.IsNaN(price) || price <= 0 {
		return apperrors.NewValidationError("price", price, "price must be positive")
	}

	if v.strictMode && price > MaxPrice {
		return apperrors.NewValidationError("price", price, fmt.Sprintf("price exceeds maximum allowed (%d)", MaxPrice))
	}

	return nil
}

// CleanReason prepares free-form reset request text for storage: control
// characters are removed and the result is cut to MaxReasonLength runes.
func CleanReason(reason string) string {
	return utils.Truncate(strings.TrimSpace(SanitizeText(reason)), MaxReasonLength)
}

// containsInjection checks for SQL or command injection patterns.
func (v *InputValidator) containsInjection(input string) bool {
	for _, pattern := range sqlInjectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}

	for _, pattern := range cmdInjectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}

	return false
}

// SanitizeText sanitizes free-form text by removing control characters.
func SanitizeText(text string) string {
	var result strings.Builder
	for _, r := range text {
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
