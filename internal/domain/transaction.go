package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a donation transaction.
type Status string

const (
	StatusPendingProof    Status = "pending_proof"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

var forwardTransitions = map[Status][]Status{
	StatusPendingProof:    {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingProof, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether moving from s to next is a forward step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transaction is a single donation attempt.
type Transaction struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Currency    Currency        `db:"currency" json:"currency"`
	Status      Status          `db:"status" json:"status"`
	ProofRef    string          `db:"proof_ref" json:"proof_ref,omitempty"`
	RecipientID int64           `db:"recipient_id" json:"recipient_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// FormatAmount renders the amount with the currency sign and two decimals.
func (t *Transaction) FormatAmount() string {
	if t == nil {
		return ""
	}
	return FormatMoney(t.Amount, t.Currency)
}

// FormatMoney renders an amount with the currency sign and two decimals.
func FormatMoney(amount decimal.Decimal, c Currency) string {
	return c.Symbol() + " " + amount.StringFixed(2)
}

// Stats aggregates donation totals for the admin dashboard.
type Stats struct {
	TotalRaised      decimal.Decimal
	RaisedByCurrency map[Currency]decimal.Decimal
	PendingReviews   int
	TotalDonors      int
}
