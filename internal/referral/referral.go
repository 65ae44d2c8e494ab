// Package referral parses deep-link payloads and resolves donation recipients.
package referral

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	donatePrefix  = "donate_"
	profilePrefix = "profile_"
	amountPlaces  = 2
)

// maxAmount fits NUMERIC(18,2).
var maxAmount = decimal.RequireFromString("9999999999999999.99")

// Kind tells what a payload asked for.
type Kind int

const (
	None Kind = iota
	Donate
	Profile
)

func (k Kind) String() string {
	switch k {
	case Donate:
		return "donate"
	case Profile:
		return "profile"
	default:
		return "none"
	}
}

// Link is a parsed deep-link payload. Recipient is zero when absent.
type Link struct {
	Kind      Kind
	Amount    decimal.Decimal
	Recipient int64
}

// HasRecipient reports whether the payload named a usable recipient.
func (l Link) HasRecipient() bool {
	return l.Recipient > 0
}

// Parse interprets a /start payload on behalf of the acting user.
func Parse(payload string, self int64) Link {
	payload = strings.TrimSpace(payload)

	if strings.HasPrefix(payload, donatePrefix) {
		parts := strings.Split(payload, "_")
		amount, ok := ParseAmount(parts[1])
		if !ok {
			return Link{Kind: None}
		}

		link := Link{Kind: Donate, Amount: amount}
		if len(parts) > 2 {
			link.Recipient = parseRecipient(parts[2], self)
		}
		return link
	}

	if strings.HasPrefix(payload, profilePrefix) {
		return Link{Kind: Profile, Recipient: parseRecipient(strings.TrimPrefix(payload, profilePrefix), self)}
	}

	if isDigits(payload) {
		return Link{Kind: Profile, Recipient: parseRecipient(payload, self)}
	}

	return Link{Kind: None}
}

// ParseAmount accepts a positive decimal with at most two fractional digits. A comma
// is accepted as the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	if !amount.IsPositive() || !amount.Equal(amount.Round(amountPlaces)) || amount.GreaterThan(maxAmount) {
		return decimal.Zero, false
	}
	return amount, true
}

// Resolve picks the recipient for an in-progress donation: explicit deep-link
// recipient, then the session, then the stored preference. Self is never returned.
func Resolve(self, explicit, session, preferred int64) int64 {
	for _, candidate := range []int64{explicit, session, preferred} {
		if candidate > 0 && candidate != self {
			return candidate
		}
	}
	return 0
}

func parseRecipient(raw string, self int64) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 || id == self {
		return 0
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
