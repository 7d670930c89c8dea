package money

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Domain errors
var (
	ErrEmptyAmount    = errors.New("amount cannot be empty")
	ErrInvalidAmount  = errors.New("amount must contain only digits, '.' or ','")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrAmountTooLarge = errors.New("amount is too large")
)

// MaxCents is the largest amount ParseCents accepts (R$ 1 trillion). It stays
// well inside the range where float64 holds whole cents exactly.
const MaxCents int64 = 100_000_000_000_000

var currencyTokens = []string{"r$", "brl", "us$", "usd", "$", "€", " ", " "}

// ParseCents converts a free-text money string into integer cents.
//
// Accepted shapes include "R$ 3.500,00", "3500", "3,500.50", "R$3.500" and
// "3.5k". When both '.' and ',' appear the right-most one is the decimal
// separator. A lone separator is a thousands separator when it repeats or is
// followed by exactly three digits, otherwise it is the decimal separator.
func ParseCents(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	if s == "" {
		return 0, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}

	multiplier := 1.0
	if strings.HasSuffix(s, "k") {
		multiplier = 1000
		s = strings.TrimSuffix(s, "k")
	}

	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ',':
		default:
			return 0, ErrInvalidAmount
		}
	}
	if !hasDigit {
		return 0, ErrInvalidAmount
	}

	normalized := normalizeSeparators(s)
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := math.Round(v * multiplier * 100)
	if cents > float64(MaxCents) {
		return 0, ErrAmountTooLarge
	}
	return int64(cents), nil
}

// normalizeSeparators rewrites s into the "1234.56" form ParseFloat accepts.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	var decimal byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			decimal = '.'
		} else {
			decimal = ','
		}
	case lastDot >= 0:
		if isThousandsOnly(s, '.', lastDot) {
			return strings.ReplaceAll(s, ".", "")
		}
		decimal = '.'
	case lastComma >= 0:
		if isThousandsOnly(s, ',', lastComma) {
			return strings.ReplaceAll(s, ",", "")
		}
		decimal = ','
	default:
		return s
	}

	var b strings.Builder
	split := strings.LastIndexByte(s, decimal)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case i == split:
			b.WriteByte('.')
		case c == '.' || c == ',':
			// thousands separator
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isThousandsOnly(s string, sep byte, last int) bool {
	if strings.Count(s, string(sep)) > 1 {
		return true
	}
	return len(s)-last-1 == 3 && last > 0
}

// FormatBRL renders cents as Brazilian reais, e.g. 350000 -> "R$ 3.500,00".
func FormatBRL(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var grouped strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := "R$ " + grouped.String() + "," + twoDigits(frac)
	if neg {
		return "-" + out
	}
	return out
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
