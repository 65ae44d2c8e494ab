package state

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/domain"
)

// Step is a typed conversation step. Each step maps to exactly one State and
// carries only the data valid in that state.
type Step interface {
	State() State
}

// Idle is the resting state. Recipient remembers a referral captured in this conversation.
type Idle struct {
	Recipient int64 `json:"recipient,omitempty"`
}

// ChoosingLanguage parks the /start payload until a language is picked.
type ChoosingLanguage struct {
	Payload string `json:"payload,omitempty"`
}

// AwaitingCurrency waits for a currency. Amount is set when a deep link carried it.
type AwaitingCurrency struct {
	Recipient int64            `json:"recipient"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

type AwaitingAmount struct {
	Recipient int64           `json:"recipient"`
	Currency  domain.Currency `json:"currency"`
}

// AwaitingProof holds the created transaction and the card shown to the donor.
type AwaitingProof struct {
	Recipient     int64           `json:"recipient"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      domain.Currency `json:"currency"`
	TransactionID int64           `json:"transaction_id"`
	CardID        int64           `json:"card_id"`
	CardDetails   string          `json:"card_details"`
}

type AdminCardDetails struct{}

type AdminCardCurrency struct {
	Details string `json:"details"`
}

type AdminCardConfirm struct {
	Details  string          `json:"details"`
	Currency domain.Currency `json:"currency"`
}

type AdminSupportText struct{}

type AdminSupportConfirm struct {
	Text string `json:"text"`
}

func (Idle) State() State                { return StateIdle }
func (ChoosingLanguage) State() State    { return StateChoosingLanguage }
func (AwaitingCurrency) State() State    { return StateAwaitingCurrency }
func (AwaitingAmount) State() State      { return StateAwaitingAmount }
func (AwaitingProof) State() State       { return StateAwaitingProof }
func (AdminCardDetails) State() State    { return StateAdminCardDetails }
func (AdminCardCurrency) State() State   { return StateAdminCardCurrency }
func (AdminCardConfirm) State() State    { return StateAdminCardConfirm }
func (AdminSupportText) State() State    { return StateAdminSupportText }
func (AdminSupportConfirm) State() State { return StateAdminSupportConfirm }

// EncodeStep serializes the step payload.
func EncodeStep(step Step) (State, json.RawMessage, error) {
	data, err := json.Marshal(step)
	if err != nil {
		return "", nil, fmt.Errorf("encode step %s: %w", step.State(), err)
	}
	return step.State(), data, nil
}

// DecodeStep rebuilds the typed step from a stored record.
func DecodeStep(us *UserState) (Step, error) {
	if us == nil {
		return Idle{}, nil
	}

	var step Step
	switch us.CurrentState {
	case StateIdle:
		step = &Idle{}
	case StateChoosingLanguage:
		step = &ChoosingLanguage{}
	case StateAwaitingCurrency:
		step = &AwaitingCurrency{}
	case StateAwaitingAmount:
		step = &AwaitingAmount{}
	case StateAwaitingProof:
		step = &AwaitingProof{}
	case StateAdminCardDetails:
		step = &AdminCardDetails{}
	case StateAdminCardCurrency:
		step = &AdminCardCurrency{}
	case StateAdminCardConfirm:
		step = &AdminCardConfirm{}
	case StateAdminSupportText:
		step = &AdminSupportText{}
	case StateAdminSupportConfirm:
		step = &AdminSupportConfirm{}
	default:
		return nil, fmt.Errorf("unknown state %q", us.CurrentState)
	}

	if len(us.Data) > 0 {
		if err := json.Unmarshal(us.Data, step); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", us.CurrentState, err)
		}
	}

	return deref(step), nil
}

func deref(step Step) Step {
	switch s := step.(type) {
	case *Idle:
		return *s
	case *ChoosingLanguage:
		return *s
	case *AwaitingCurrency:
		return *s
	case *AwaitingAmount:
		return *s
	case *AwaitingProof:
		return *s
	case *AdminCardDetails:
		return *s
	case *AdminCardCurrency:
		return *s
	case *AdminCardConfirm:
		return *s
	case *AdminSupportText:
		return *s
	case *AdminSupportConfirm:
		return *s
	default:
		return step
	}
}
