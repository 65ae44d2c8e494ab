package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/donation-bot/internal/state"
)

const defaultCollectInterval = 10 * time.Second

// StateSource lists every stored conversation state.
type StateSource interface {
	GetAllStates(ctx context.Context) ([]*state.UserState, error)
}

// StateCollector refreshes the session gauges from a StateSource.
type StateCollector struct {
	source   StateSource
	interval time.Duration
	log      *slog.Logger
}

func NewStateCollector(source StateSource, interval time.Duration, log *slog.Logger) *StateCollector {
	if interval <= 0 {
		interval = defaultCollectInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &StateCollector{source: source, interval: interval, log: log}
}

// Run collects immediately and then every interval until ctx is done.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.source == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.Collect(ctx); err != nil {
			c.log.Warn("session gauges not refreshed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect runs one refresh. Known states are always published, so a state that
// emptied reads zero instead of keeping its last value.
func (c *StateCollector) Collect(ctx context.Context) error {
	states, err := c.source.GetAllStates(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(state.AllStates))
	for _, tracked := range state.AllStates {
		counts[string(tracked)] = 0
	}
	for _, st := range states {
		if st == nil {
			continue
		}
		counts[orUnknown(string(st.CurrentState))]++
	}

	sessionsActive.Set(float64(len(states)))
	sessionsByState.Reset()
	for label, n := range counts {
		sessionsByState.WithLabelValues(label).Set(float64(n))
	}
	return nil
}
