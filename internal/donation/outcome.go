package donation

import (
	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/domain"
)

// Kind names the result of a donation step; the transport renders one message per kind.
type Kind int

const (
	KindReferralRequired Kind = iota + 1
	KindNoCurrencies
	KindChooseCurrency
	KindCurrencyUnavailable
	KindAskAmount
	KindInvalidAmount
	KindNoCard
	KindAwaitProof
	KindProofRequired
	KindSubmitted
	KindCancelled
	KindNothingToCancel
	KindSessionExpired
	KindApproved
	KindRejected
	KindAlreadyDecided
)

var kindNames = map[Kind]string{
	KindReferralRequired:    "referral_required",
	KindNoCurrencies:        "no_currencies",
	KindChooseCurrency:      "choose_currency",
	KindCurrencyUnavailable: "currency_unavailable",
	KindAskAmount:           "ask_amount",
	KindInvalidAmount:       "invalid_amount",
	KindNoCard:              "no_card",
	KindAwaitProof:          "await_proof",
	KindProofRequired:       "proof_required",
	KindSubmitted:           "submitted",
	KindCancelled:           "cancelled",
	KindNothingToCancel:     "nothing_to_cancel",
	KindSessionExpired:      "session_expired",
	KindApproved:            "approved",
	KindRejected:            "rejected",
	KindAlreadyDecided:      "already_decided",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Outcome is what a donation operation produced. Fields are set only when the kind uses them.
type Outcome struct {
	Kind        Kind
	Recipient   int64
	Amount      *decimal.Decimal
	Currency    domain.Currency
	Currencies  []domain.Currency
	Transaction *domain.Transaction
	Card        *domain.Card
	// Reviewers receive the proof for approval.
	Reviewers []int64
}
