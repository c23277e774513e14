// Package normalize parses the locale-formatted numbers and dates found in portal pages.
package normalize

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/findata/internal/models"
)

const currencySymbol = "R$"

// ParseAmount parses a pt-BR currency cell. Blank text yields an invalid NullDecimal (absent,
// not zero). "." groups thousands, "," separates decimals, and parentheses or a leading or
// trailing minus mark a negative amount. Anything else is an error.
func ParseAmount(text string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	if s == "" {
		return decimal.NullDecimal{}, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.TrimSpace(strings.TrimPrefix(s, currencySymbol))

	switch {
	case strings.HasPrefix(s, "-"):
		if negative {
			return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: double negative", text)
		}
		negative = true
		s = strings.TrimSpace(s[1:])
	case strings.HasSuffix(s, "-"):
		if negative {
			return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: double negative", text)
		}
		negative = true
		s = strings.TrimSpace(s[:len(s)-1])
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, currencySymbol))

	integral, fraction, hasFraction := strings.Cut(s, ",")
	if integral == "" && !hasFraction {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q", text)
	}
	if !validIntegral(integral) || (hasFraction && !allDigits(fraction)) || (hasFraction && fraction == "") {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q", text)
	}

	canonical := strings.ReplaceAll(integral, ".", "")
	if canonical == "" {
		canonical = "0"
	}
	if hasFraction {
		canonical += "." + fraction
	}

	value, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	if negative {
		value = value.Neg()
	}
	return decimal.NewNullDecimal(value), nil
}

// validIntegral accepts digits with "." thousands separators. Separators may not lead, trail,
// or repeat.
func validIntegral(s string) bool {
	if s == "" {
		return true
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	return allDigits(strings.ReplaceAll(s, ".", ""))
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExtractDate pulls the dd/mm/yyyy date that ends at the last digit of text, as in
// "Valor do Trimestre Atual 01/04/2009 a 30/06/2009". The date must be the right-most numeric
// token; text where it is not is outside this function's contract.
func ExtractDate(text string) (time.Time, error) {
	last := strings.LastIndexFunc(text, unicode.IsDigit)
	if last < 0 {
		return time.Time{}, fmt.Errorf("no date in %q", text)
	}

	start := last - 9
	if start < 0 {
		return time.Time{}, fmt.Errorf("no date in %q", text)
	}

	return ParseDate(text[start : last+1])
}

// ParseDate parses a strict dd/mm/yyyy date.
func ParseDate(text string) (time.Time, error) {
	value := strings.TrimSpace(text)
	parsed, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return parsed, nil
}
