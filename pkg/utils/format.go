// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatCurrency formats an amount in US dollars with thousands separators,
// rounding half away from zero to whole cents.
func FormatCurrency(amount float64) string {
	return dollars(amount).Display()
}

func dollars(amount float64) *money.Money {
	usd := money.GetCurrency(money.USD)
	factor := decimal.New(1, int32(usd.Fraction))
	cents := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(cents.IntPart(), money.USD)
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatGainLoss formats a gain or loss with an explicit sign.
func FormatGainLoss(amount float64) string {
	formatted := FormatCurrency(amount)
	if amount > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatShares formats a share count, dropping trailing zeros of fractional shares.
func FormatShares(shares float64) string {
	s := strconv.FormatFloat(shares, 'f', 4, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")

	intPart, frac, hasFrac := strings.Cut(s, ".")
	negative := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	out := groupThousands(intPart)
	if hasFrac {
		out += "." + frac
	}
	if negative {
		out = "-" + out
	}
	return out
}

// FormatDays formats an interval in days.
func FormatDays(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
