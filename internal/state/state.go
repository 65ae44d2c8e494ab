package state

import (
	"encoding/json"
	"time"
)

// State represents a finite-state machine state.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"
	// StateChoosingLanguage indicates that a new user is picking the interface language.
	StateChoosingLanguage State = "choosing_language"
	// StateAwaitingCurrency indicates that the donor is choosing a donation currency.
	StateAwaitingCurrency State = "donate_awaiting_currency"
	// StateAwaitingAmount indicates that the donor is typing the donation amount.
	StateAwaitingAmount State = "donate_awaiting_amount"
	// StateAwaitingProof indicates that a transaction exists and a payment screenshot is expected.
	StateAwaitingProof State = "donate_awaiting_proof"

	StateAdminCardDetails    State = "admin_card_details"
	StateAdminCardCurrency   State = "admin_card_currency"
	StateAdminCardConfirm    State = "admin_card_confirm"
	StateAdminSupportText    State = "admin_support_text"
	StateAdminSupportConfirm State = "admin_support_confirm"
)

// AllStates lists every known state; used for per-state gauges.
var AllStates = []State{
	StateIdle,
	StateChoosingLanguage,
	StateAwaitingCurrency,
	StateAwaitingAmount,
	StateAwaitingProof,
	StateAdminCardDetails,
	StateAdminCardCurrency,
	StateAdminCardConfirm,
	StateAdminSupportText,
	StateAdminSupportConfirm,
}

// UserState captures the current FSM state for a Telegram user.
type UserState struct {
	UserID       int64           `json:"user_id"`
	CurrentState State           `json:"current_state"`
	Data         json.RawMessage `json:"data,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (s *UserState) clone() *UserState {
	if s == nil {
		return nil
	}

	copied := *s
	if s.Data != nil {
		copied.Data = append(json.RawMessage(nil), s.Data...)
	}
	return &copied
}
