package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO-4217 code attached to an item price. The set covers the
// denominations the product ships with; free-text codes from imports are a
// migration concern, not accepted here.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyKES Currency = "KES"
	CurrencyGHS Currency = "GHS"
	CurrencyZAR Currency = "ZAR"
)

// DefaultCurrency is applied when an item is created without one.
const DefaultCurrency = CurrencyNGN

var validCurrencies = []Currency{
	CurrencyNGN,
	CurrencyUSD,
	CurrencyEUR,
	CurrencyGBP,
	CurrencyCAD,
	CurrencyKES,
	CurrencyGHS,
	CurrencyZAR,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency, ignoring case.
func ParseCurrency(value string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validCurrencies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
