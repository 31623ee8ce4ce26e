package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code, lowercased on the wire. Amounts are
// always integer minor units (öre for SEK).
type Currency string

const (
	CurrencySEK Currency = "sek"
	CurrencyEUR Currency = "eur"
	CurrencyNOK Currency = "nok"
	CurrencyDKK Currency = "dkk"
)

var validCurrencies = []Currency{
	CurrencySEK,
	CurrencyEUR,
	CurrencyNOK,
	CurrencyDKK,
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

// ParseCurrency converts a raw string into a Currency, accepting any case.
func ParseCurrency(value string) (Currency, error) {
	lowered := strings.ToLower(value)
	for _, candidate := range validCurrencies {
		if string(candidate) == lowered {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
