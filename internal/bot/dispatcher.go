package bot

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	"github.com/Proton-105/donation-bot/internal/state"
)

// Dispatcher hands free-form input (amounts, proofs, admin drafts) to the handler of
// the sender's conversation state. Handlers are registered before the bot starts.
type Dispatcher struct {
	fsm     state.StateMachine
	byState map[state.State]handlers.Handler
	log     *slog.Logger
}

func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:     fsm,
		byState: make(map[state.State]handlers.Handler),
		log:     log,
	}
}

// HandleStates registers h for every listed state.
func (d *Dispatcher) HandleStates(h handlers.Handler, states ...state.State) {
	for _, s := range states {
		d.byState[s] = h
	}
}

// Dispatch reports whether a state handler took the update. Users without a stored
// state are idle.
func (d *Dispatcher) Dispatch(c telebot.Context) (bool, error) {
	sender := c.Sender()
	if sender == nil {
		return false, nil
	}

	current := state.StateIdle
	stored, err := d.fsm.GetState(handlers.ContextOf(c), sender.ID)
	switch {
	case errors.Is(err, state.ErrStateNotFound):
	case err != nil:
		return false, err
	case stored != nil:
		current = stored.CurrentState
	}

	h, ok := d.byState[current]
	if !ok {
		return false, nil
	}

	d.log.Debug("dispatching by state", slog.String("state", string(current)), slog.Int64("user_id", sender.ID))
	return true, h(c)
}
