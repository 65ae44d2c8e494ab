package admin

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/lock"
	"github.com/Proton-105/donation-bot/internal/settings"
	"github.com/Proton-105/donation-bot/internal/state"
	"github.com/Proton-105/donation-bot/internal/store"
	"github.com/Proton-105/donation-bot/internal/store/memory"
)

const (
	adminID    = int64(1)
	strangerID = int64(2)
)

type env struct {
	svc      *Service
	st       *memory.Store
	settings *settings.Service
	sessions *state.Sessions
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := memory.New()
	settingsSvc := settings.NewService(st, log)
	sessions := state.NewSessions(state.NewStateMachine(state.NewMemoryStorage(time.Hour), log, lock.NewLocal(time.Second)), log)

	return &env{
		svc:      NewService(adminID, st, settingsSvc, sessions, log),
		st:       st,
		settings: settingsSvc,
		sessions: sessions,
	}
}

func TestIsAdmin(t *testing.T) {
	e := newEnv(t)
	assert.True(t, e.svc.IsAdmin(adminID))
	assert.False(t, e.svc.IsAdmin(strangerID))

	disabled := NewService(0, e.st, e.settings, e.sessions, nil)
	assert.False(t, disabled.IsAdmin(0))
}

func TestOperationsRequireAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Stats(ctx, strangerID)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = e.svc.Cards(ctx, strangerID)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = e.svc.ToggleCard(ctx, strangerID, 1)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, e.svc.DeleteCard(ctx, strangerID, 1), ErrNotAdmin)
	_, err = e.svc.ToggleCurrency(ctx, strangerID, "USD")
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = e.svc.BeginAddCard(ctx, strangerID, "")
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = e.svc.BeginSupportEdit(ctx, strangerID)
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestAddCardFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	out, err := e.svc.BeginAddCard(ctx, adminID, "")
	require.NoError(t, err)
	assert.Equal(t, KindAskCardDetails, out.Kind)

	out, err = e.svc.SubmitCardDetails(ctx, adminID, "   ")
	require.NoError(t, err)
	assert.Equal(t, KindInvalidCardDetails, out.Kind)

	out, err = e.svc.SubmitCardDetails(ctx, adminID, strings.Repeat("9", maxCardDetails+1))
	require.NoError(t, err)
	assert.Equal(t, KindInvalidCardDetails, out.Kind)

	out, err = e.svc.SubmitCardDetails(ctx, adminID, " 4111 1111 1111 1111 Bank ")
	require.NoError(t, err)
	assert.Equal(t, KindAskCardCurrency, out.Kind)
	assert.Equal(t, "4111 1111 1111 1111 Bank", out.Details)

	out, err = e.svc.ChooseCardCurrency(ctx, adminID, "EUR")
	require.NoError(t, err)
	assert.Equal(t, KindAskCardCurrency, out.Kind)

	out, err = e.svc.ChooseCardCurrency(ctx, adminID, "uah")
	require.NoError(t, err)
	assert.Equal(t, KindConfirmCard, out.Kind)
	assert.Equal(t, domain.CurrencyUAH, out.Currency)

	out, err = e.svc.ConfirmCard(ctx, adminID)
	require.NoError(t, err)
	require.Equal(t, KindCardAdded, out.Kind)
	require.NotNil(t, out.Card)
	assert.True(t, out.Card.Active)

	cards, err := e.svc.Cards(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, domain.CurrencyUAH, cards[0].Currency)

	step, err := e.sessions.Load(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, state.Idle{}, step)

	// a second confirm has no draft
	out, err = e.svc.ConfirmCard(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, KindSessionExpired, out.Kind)
}

func TestAddCardInlineDetails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	out, err := e.svc.BeginAddCard(ctx, adminID, "PayPal me@example.com")
	require.NoError(t, err)
	assert.Equal(t, KindAskCardCurrency, out.Kind)

	step, err := e.sessions.Load(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, state.AdminCardCurrency{Details: "PayPal me@example.com"}, step)

	out, err = e.svc.CancelCard(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, KindCardCancelled, out.Kind)

	out, err = e.svc.ChooseCardCurrency(ctx, adminID, "USD")
	require.NoError(t, err)
	assert.Equal(t, KindSessionExpired, out.Kind)
}

func TestToggleAndDeleteCard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	card := &domain.Card{Details: "x", Currency: domain.CurrencyRUB, Active: true}
	require.NoError(t, e.st.AddCard(ctx, card))

	toggled, err := e.svc.ToggleCard(ctx, adminID, card.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	stored, err := e.st.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	require.NoError(t, e.svc.DeleteCard(ctx, adminID, card.ID))
	_, err = e.svc.ToggleCard(ctx, adminID, card.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggleCurrency(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	enabled, err := e.svc.ToggleCurrency(ctx, adminID, "RUB")
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{domain.CurrencyUAH, domain.CurrencyUSD}, enabled)

	enabled, err = e.svc.ToggleCurrency(ctx, adminID, "RUB")
	require.NoError(t, err)
	assert.Equal(t, domain.SupportedCurrencies, enabled)

	_, err = e.svc.ToggleCurrency(ctx, adminID, "EUR")
	assert.Error(t, err)
}

func TestSupportFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	out, err := e.svc.BeginSupportEdit(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, KindAskSupportText, out.Kind)

	out, err = e.svc.SubmitSupportText(ctx, adminID, "")
	require.NoError(t, err)
	assert.Equal(t, KindInvalidSupportText, out.Kind)

	out, err = e.svc.SubmitSupportText(ctx, adminID, "Write to @helpdesk")
	require.NoError(t, err)
	assert.Equal(t, KindConfirmSupport, out.Kind)

	msg, err := e.svc.SupportMessage(ctx)
	require.NoError(t, err)
	assert.Empty(t, msg)

	out, err = e.svc.ConfirmSupport(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, KindSupportSaved, out.Kind)

	msg, err = e.svc.SupportMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Write to @helpdesk", msg)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tx := &domain.Transaction{
		UserID:      10,
		RecipientID: 20,
		Amount:      decimal.NewFromInt(5),
		Currency:    domain.CurrencyUSD,
		Status:      domain.StatusPendingProof,
	}
	require.NoError(t, e.st.CreateTransaction(ctx, tx))
	require.NoError(t, e.st.UpdateTransactionProof(ctx, tx.ID, "file"))

	stats, err := e.svc.Stats(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingReviews)
	assert.True(t, stats.TotalRaised.IsZero())
}
