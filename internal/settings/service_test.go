package settings

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnabledCurrencies_DefaultsToSupported(t *testing.T) {
	svc := NewService(memory.New(), testLogger())

	enabled, err := svc.EnabledCurrencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SupportedCurrencies, enabled)
}

func TestEnabledCurrencies_CanonicalOrder(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.SetSetting(ctx, KeyEnabledCurrencies, "USD, eur,UAH,USD"))

	svc := NewService(st, testLogger())
	enabled, err := svc.EnabledCurrencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{domain.CurrencyUAH, domain.CurrencyUSD}, enabled)
}

func TestSetCurrencyEnabled(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewService(st, testLogger())

	got, err := svc.SetCurrencyEnabled(ctx, domain.CurrencyRUB, false)
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{domain.CurrencyUAH, domain.CurrencyUSD}, got)

	raw, _, err := st.GetSetting(ctx, KeyEnabledCurrencies)
	require.NoError(t, err)
	assert.Equal(t, "UAH,USD", raw)

	got, err = svc.ToggleCurrency(ctx, domain.CurrencyRUB)
	require.NoError(t, err)
	assert.Equal(t, domain.SupportedCurrencies, got)

	_, err = svc.SetCurrencyEnabled(ctx, domain.Currency("EUR"), true)
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	on, err := svc.IsCurrencyEnabled(ctx, domain.CurrencyRUB)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestRotationPointer(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewService(st, testLogger())

	n, err := svc.RotationPointer(ctx, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.SetRotationPointer(ctx, domain.CurrencyUSD, 3))
	n, err = svc.RotationPointer(ctx, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	raw, found, err := st.GetSetting(ctx, "card_rr_pointer_USD")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "3", raw)

	require.NoError(t, st.SetSetting(ctx, "card_rr_pointer_UAH", "garbage"))
	n, err = svc.RotationPointer(ctx, domain.CurrencyUAH)
	require.NoError(t, err)
	assert.Zero(t, n)
}
