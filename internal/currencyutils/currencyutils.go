// Package currencyutils parses and compares the monetary amounts shown on
// vendor portals and in bank ledgers.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// symbols and words that surround amounts on portals ("45,00 € TTC").
	noise        = regexp.MustCompile(`(?i)(€|\$|£|EUR|TTC|HT|CHF|\s|\x{00a0}|\x{202f})`)
	amountInText = regexp.MustCompile(`-?\d{1,3}(?:[ \x{00a0}\x{202f}'.]\d{3})*(?:[.,]\d+)?|-?\d+(?:[.,]\d+)?`)
)

// ParseAmount parses a string representation of an amount into a decimal
// value. It accepts "1234.56", "1234,56", "1 234,56 €", "1.234,56" and
// "1'234.56". An empty string is an error: a bill without an amount cannot be
// deduplicated.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := StandardizeAmount(amountStr)
	if standardized == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return amount, nil
}

// StandardizeAmount converts portal amount strings to the format accepted by
// decimal.NewFromString.
func StandardizeAmount(amountStr string) string {
	amountStr = noise.ReplaceAllString(amountStr, "")
	amountStr = strings.ReplaceAll(amountStr, "'", "")

	hasComma := strings.Contains(amountStr, ",")
	hasDot := strings.Contains(amountStr, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(amountStr, ".") < strings.LastIndex(amountStr, ",") {
			amountStr = strings.ReplaceAll(amountStr, ".", "")
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	case hasComma:
		parts := strings.Split(amountStr, ",")
		if len(parts) == 2 && len(parts[1]) != 3 {
			amountStr = strings.Replace(amountStr, ",", ".", 1)
		} else {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	}
	return amountStr
}

// FindAmount extracts the first amount embedded in free text such as
// "Montant : 45,00 € TTC".
func FindAmount(text string) (decimal.Decimal, error) {
	match := amountInText.FindString(text)
	if match == "" {
		return decimal.Zero, fmt.Errorf("no amount in %q", text)
	}
	return ParseAmount(match)
}

// AbsDiff returns |a - b|.
func AbsDiff(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Abs()
}

// WithinTolerance reports whether |a - b| <= tolerance. The bound is inclusive.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return AbsDiff(a, b).LessThanOrEqual(tolerance)
}

// FormatAmount formats amount with two decimals and an optional currency code.
func FormatAmount(amount decimal.Decimal, currency string) string {
	formatted := amount.StringFixed(2)
	switch strings.ToUpper(currency) {
	case "":
		return formatted
	case "EUR":
		return formatted + " €"
	default:
		return formatted + " " + currency
	}
}
