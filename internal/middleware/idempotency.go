package middleware

import (
	"context"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	"github.com/Proton-105/donation-bot/internal/idempotency"
)

const defaultIdempotencyTTL = 10 * time.Minute

// Idempotency drops Telegram redeliveries: an update that completed within ttl, or is
// still being handled, is acknowledged without running the handler again. A handler
// error leaves the update open for the next delivery.
func Idempotency(guard *idempotency.Guard, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if guard == nil {
		return func(next handlers.Handler) handlers.Handler { return next }
	}
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			key := updateKey(c)
			if key == "" {
				return next(c)
			}

			outcome, err := guard.Once(handlers.ContextOf(c), key, ttl, func(context.Context) error {
				return next(c)
			})
			if err != nil {
				return err
			}
			if outcome != idempotency.Processed {
				log.Debug("update skipped", slog.String("key", key), slog.String("outcome", outcome.String()))
			}
			return nil
		}
	}
}

// updateKey prefers the Telegram update id and falls back to the callback or message
// identity for contexts built without one.
func updateKey(c telebot.Context) string {
	if key := idempotency.UpdateKey(c.Update().ID); key != "" {
		return key
	}

	if cb := c.Callback(); cb != nil {
		if key := idempotency.CallbackKey(cb.ID); key != "" {
			return key
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			return idempotency.MessageKey(cb.Message.Chat.ID, cb.Message.ID)
		}
		return ""
	}

	if msg := c.Message(); msg != nil && msg.Chat != nil {
		return idempotency.MessageKey(msg.Chat.ID, msg.ID)
	}
	return ""
}
