package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/i18n"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Keys of per-update values stored on telebot.Context by the middleware chain.
const (
	contextKey    = "ctx"
	translatorKey = "translator"
)

// SetContext attaches the request context of the update.
func SetContext(c telebot.Context, ctx context.Context) {
	c.Set(contextKey, ctx)
}

// ContextOf returns the request context attached by the middleware chain.
func ContextOf(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// SetTranslator attaches the sender's translator.
func SetTranslator(c telebot.Context, t i18n.Translator) {
	c.Set(translatorKey, t)
}

// TranslatorOf returns the sender's translator. Without one, keys are returned as is.
func TranslatorOf(c telebot.Context) i18n.Translator {
	if c != nil {
		if t, ok := c.Get(translatorKey).(i18n.Translator); ok && t != nil {
			return t
		}
	}
	var none *i18n.Manager
	return none.Translator("")
}
