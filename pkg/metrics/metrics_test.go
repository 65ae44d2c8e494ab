package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/state"
)

type fakeSource struct {
	states []*state.UserState
	err    error
}

func (f fakeSource) GetAllStates(context.Context) ([]*state.UserState, error) {
	return f.states, f.err
}

func TestStateCollector_Collect(t *testing.T) {
	c := NewStateCollector(fakeSource{states: []*state.UserState{
		{UserID: 1, CurrentState: state.StateAwaitingAmount},
		{UserID: 2, CurrentState: state.StateAwaitingAmount},
		{UserID: 3, CurrentState: state.StateAwaitingProof},
		nil,
	}}, time.Minute, nil)

	require.NoError(t, c.Collect(context.Background()))

	assert.Equal(t, float64(4), testutil.ToFloat64(sessionsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateAwaitingAmount))))
	assert.Equal(t, float64(1), testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateAwaitingProof))))
	assert.Equal(t, float64(0), testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateAwaitingCurrency))))
}

func TestStateCollector_SourceError(t *testing.T) {
	boom := errors.New("redis down")
	c := NewStateCollector(fakeSource{err: boom}, 0, nil)

	assert.ErrorIs(t, c.Collect(context.Background()), boom)
	assert.Equal(t, defaultCollectInterval, c.interval)
}

func TestRecorders_LabelUnknown(t *testing.T) {
	before := testutil.ToFloat64(transitionsTotal.WithLabelValues("unknown", "idle"))
	RecordStateTransition("", "idle")
	assert.Equal(t, before+1, testutil.ToFloat64(transitionsTotal.WithLabelValues("unknown", "idle")))

	before = testutil.ToFloat64(cardSelectionsTotal.WithLabelValues("RUB", "none"))
	RecordCardSelection("RUB", false)
	assert.Equal(t, before+1, testutil.ToFloat64(cardSelectionsTotal.WithLabelValues("RUB", "none")))
}
