package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/admin"
	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	"github.com/Proton-105/donation-bot/internal/donation"
	"github.com/Proton-105/donation-bot/internal/i18n"
	"github.com/Proton-105/donation-bot/internal/notify"
	"github.com/Proton-105/donation-bot/internal/state"
	"github.com/Proton-105/donation-bot/internal/transaction"
	"github.com/Proton-105/donation-bot/internal/user"
)

const defaultHistoryLimit = 10

// Deps are the services the handlers talk to.
type Deps struct {
	Users        *user.Service
	Donations    *donation.Service
	Admin        *admin.Service
	Transactions *transaction.Manager
	Sessions     *state.Sessions
	Notifier     notify.Notifier
	Catalog      *i18n.Manager
	Keyboards    *keyboard.Builder
	// BotUsername builds t.me share links on the profile page.
	BotUsername  string
	HistoryLimit int
	Log          *slog.Logger
}

// Set holds every update handler of the bot.
type Set struct {
	Deps
}

// NewSet returns the handler set over d.
func NewSet(d Deps) *Set {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = defaultHistoryLimit
	}
	if d.Keyboards == nil {
		d.Keyboards = keyboard.NewBuilder(d.Catalog, d.Log)
	}
	return &Set{Deps: d}
}

func senderID(c telebot.Context) int64 {
	if c == nil || c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

// reply edits the message behind a callback and sends a new message otherwise.
func reply(c telebot.Context, text string, opts ...interface{}) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil || cb.Message.Photo != nil {
		return c.Send(text, opts...)
	}

	err := c.Edit(text, opts...)
	if errors.Is(err, telebot.ErrSameMessageContent) || errors.Is(err, telebot.ErrMessageNotModified) {
		return nil
	}
	return err
}

// answer acknowledges a callback. For plain messages a non-empty text is sent instead.
func answer(c telebot.Context, text string, alert bool) error {
	if c.Callback() == nil {
		if text == "" {
			return nil
		}
		return c.Send(text)
	}
	return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: alert})
}

func callbackPayload(c telebot.Context, prefix string) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	payload, _ := keyboard.DecodeCallback(cb.Data, prefix)
	return payload
}

func callbackID(c telebot.Context, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(callbackPayload(c, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Set) mainMenu(c telebot.Context) *telebot.ReplyMarkup {
	isAdmin := s.Admin != nil && s.Admin.IsAdmin(senderID(c))
	return keyboard.MainMenu(TranslatorOf(c), isAdmin)
}
