package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	cardNumberMinDigits = 12
	cardLabelMaxRunes   = 90
)

// Card holds free-text payment instructions for one currency.
type Card struct {
	ID        int64     `db:"id" json:"id"`
	Details   string    `db:"details" json:"details"`
	Currency  Currency  `db:"currency" json:"currency"`
	Active    bool      `db:"is_active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Label renders a compact card description for admin listings. Card numbers are
// grouped by four ASCII digits, other details are truncated.
func (c Card) Label() string {
	var digits strings.Builder
	for _, r := range c.Details {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	if digits.Len() >= cardNumberMinDigits {
		raw := digits.String()
		groups := make([]string, 0, len(raw)/4+1)
		for i := 0; i < len(raw); i += 4 {
			end := i + 4
			if end > len(raw) {
				end = len(raw)
			}
			groups = append(groups, raw[i:end])
		}
		return "[" + string(c.Currency) + "] " + strings.Join(groups, " ")
	}

	details := c.Details
	if utf8.RuneCountInString(details) > cardLabelMaxRunes {
		details = string([]rune(details)[:cardLabelMaxRunes]) + "..."
	}
	return "[" + string(c.Currency) + "] " + details
}
