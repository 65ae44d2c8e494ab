package bot

import (
	"log/slog"
	"sort"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
)

type callbackRoute struct {
	prefix  string
	handler handlers.CallbackHandler
}

// Router picks the handler for an update: callbacks by data prefix, then commands,
// then reply-keyboard labels, then the sender's conversation state. Routes are
// registered while the bot is wired and must not change once updates flow.
type Router struct {
	commands   map[string]handlers.Handler
	texts      map[string]handlers.Handler
	callbacks  []callbackRoute
	dispatcher *Dispatcher
	fallback   handlers.Handler
	chain      []handlers.Middleware
	log        *slog.Logger
}

func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		commands:   make(map[string]handlers.Handler),
		texts:      make(map[string]handlers.Handler),
		dispatcher: dispatcher,
		log:        log,
	}
}

func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.commands[cmd] = h
}

// RegisterText routes exact message texts, such as reply keyboard labels in every
// language, to h.
func (r *Router) RegisterText(h handlers.Handler, texts ...string) {
	for _, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			r.texts[text] = h
		}
	}
}

// RegisterCallback routes callback data built with prefix. The longest matching
// prefix wins, so "cancel_setcard" shadows "cancel".
func (r *Router) RegisterCallback(prefix string, h handlers.CallbackHandler) {
	for i := range r.callbacks {
		if r.callbacks[i].prefix == prefix {
			r.callbacks[i].handler = h
			return
		}
	}
	r.callbacks = append(r.callbacks, callbackRoute{prefix: prefix, handler: h})
	sort.SliceStable(r.callbacks, func(i, j int) bool {
		return len(r.callbacks[i].prefix) > len(r.callbacks[j].prefix)
	})
}

// Use appends mw; the first registered middleware runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.chain = append(r.chain, mw)
}

// SetDefault handles messages no route or state claims.
func (r *Router) SetDefault(h handlers.Handler) {
	r.fallback = h
}

// Route runs the matching handler inside the middleware chain.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if cb := c.Callback(); cb != nil {
		h := r.callback(cb.Data)
		if h == nil {
			r.log.Info("unrouted callback", slog.String("data", cb.Data))
			return c.Respond()
		}
		return r.wrap(handlers.Handler(h))(c)
	}

	return r.wrap(r.message(c))(c)
}

func (r *Router) callback(data string) handlers.CallbackHandler {
	for _, route := range r.callbacks {
		if keyboard.Matches(data, route.prefix) {
			return route.handler
		}
	}
	return nil
}

// message resolves commands and menu labels. Photos and documents always go to the
// state handler because they carry proofs.
func (r *Router) message(c telebot.Context) handlers.Handler {
	msg := c.Message()
	if msg == nil || msg.Photo != nil || msg.Document != nil {
		return r.byState
	}

	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		if h, ok := r.commands[commandName(text)]; ok {
			return h
		}
	}
	if h, ok := r.texts[text]; ok {
		return h
	}
	return r.byState
}

func (r *Router) byState(c telebot.Context) error {
	if r.dispatcher != nil {
		handled, err := r.dispatcher.Dispatch(c)
		if err != nil || handled {
			return err
		}
	}
	if r.fallback != nil {
		return r.fallback(c)
	}
	return nil
}

func (r *Router) wrap(h handlers.Handler) handlers.Handler {
	for i := len(r.chain) - 1; i >= 0; i-- {
		h = r.chain[i](h)
	}
	return h
}

// commandName strips arguments and the @bot suffix from a command message.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return cmd
}
