package domain

import "strings"

// Currency is an ISO code from the fixed supported set.
type Currency string

const (
	CurrencyUAH Currency = "UAH"
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
)

// SupportedCurrencies lists every donation currency in canonical order.
var SupportedCurrencies = []Currency{CurrencyUAH, CurrencyRUB, CurrencyUSD}

var currencySymbols = map[Currency]string{
	CurrencyUAH: "₴",
	CurrencyRUB: "₽",
	CurrencyUSD: "$",
}

var currencyFlags = map[Currency]string{
	CurrencyUAH: "🇺🇦",
	CurrencyRUB: "🇷🇺",
	CurrencyUSD: "🇺🇸",
}

// ParseCurrency normalizes raw input and reports whether it is supported.
func ParseCurrency(raw string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	return c, c.Supported()
}

// Supported reports whether the currency belongs to the supported set.
func (c Currency) Supported() bool {
	for _, s := range SupportedCurrencies {
		if s == c {
			return true
		}
	}
	return false
}

// Symbol returns the printable currency sign, falling back to the code.
func (c Currency) Symbol() string {
	if s, ok := currencySymbols[c]; ok {
		return s
	}
	return string(c)
}

// Label returns a flag-prefixed code used on buttons.
func (c Currency) Label() string {
	if flag, ok := currencyFlags[c]; ok {
		return flag + " " + string(c)
	}
	return string(c)
}

func (c Currency) String() string {
	return string(c)
}

// SortCanonical filters out unsupported and duplicate codes and returns the rest in
// canonical order.
func SortCanonical(in []Currency) []Currency {
	seen := make(map[Currency]bool, len(in))
	for _, c := range in {
		seen[c] = true
	}

	out := make([]Currency, 0, len(in))
	for _, c := range SupportedCurrencies {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}
