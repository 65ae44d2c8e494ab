package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/donation-bot/internal/errors"
	"github.com/Proton-105/donation-bot/internal/i18n"
	"github.com/Proton-105/donation-bot/internal/lock"
	"github.com/Proton-105/donation-bot/internal/store"
	"github.com/Proton-105/donation-bot/internal/user"
	"github.com/Proton-105/donation-bot/pkg/logger"
)

const serializeKeyPattern = "update:%d"

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					key := apperrors.MsgGeneric
					if errHandler != nil {
						appErr := apperrors.NewDatabaseError(fmt.Errorf("panic recovered: %v", r))
						if reply, ok := errHandler.Handle(handlers.ContextOf(c), appErr); ok {
							key = reply.MessageKey
						}
					}

					if c != nil {
						if sendErr := notifyFailure(c, handlers.TranslatorOf(c).T(key)); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			text := handlers.TranslatorOf(c).T(apperrors.MsgGeneric)
			if errHandler != nil {
				if reply, ok := errHandler.Handle(handlers.ContextOf(c), classify(err)); ok {
					text = handlers.TranslatorOf(c).T(reply.MessageKey, reply.Args...)
				}
			}

			_ = notifyFailure(c, text)
			return nil
		}
	}
}

// classify maps domain sentinels onto the application error taxonomy.
func classify(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError("record", err)
	case errors.Is(err, lock.ErrTimeout):
		return apperrors.NewRateLimitError(1)
	case errors.Is(err, user.ErrUnsupportedLanguage):
		return apperrors.NewValidationError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewExternalAPIError("handler", err)
	default:
		return apperrors.NewDatabaseError(err)
	}
}

func notifyFailure(c telebot.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}

// LoggingMiddleware attaches a correlation id and a deadline to the update and logs it.
func LoggingMiddleware(log *slog.Logger, timeout time.Duration) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			correlationID := uuid.NewString()

			ctx := logger.WithCorrelationID(handlers.ContextOf(c), correlationID)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			handlers.SetContext(c, ctx)

			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := c.Text()
			if cb := c.Callback(); cb != nil {
				action = cb.Data
			} else if msg := c.Message(); msg != nil && msg.Photo != nil {
				action = "photo"
			}

			log.Info("handling update",
				slog.String("correlation_id", correlationID),
				slog.Int64("user_id", userID),
				slog.String("action", action),
			)
			err := next(c)
			log.Info("handled update",
				slog.String("correlation_id", correlationID),
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// SerializeMiddleware processes one update per user at a time.
func SerializeMiddleware(locker lock.Locker, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if locker == nil || c.Sender() == nil {
				return next(c)
			}

			unlock, err := locker.Lock(handlers.ContextOf(c), fmt.Sprintf(serializeKeyPattern, c.Sender().ID))
			if err != nil {
				log.Warn("user is busy with another update", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
				return err
			}
			defer unlock()

			return next(c)
		}
	}
}

// AuthMiddleware ensures that each incoming request is associated with a user record
// and attaches the user's translator.
func AuthMiddleware(users *user.Service, catalog *i18n.Manager, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			sender := c.Sender()
			if users == nil || sender == nil {
				handlers.SetTranslator(c, catalog.Translator(""))
				return next(c)
			}

			handlers.SetTranslator(c, catalog.Translator(sender.LanguageCode))

			ctx := handlers.ContextOf(c)
			if _, _, err := users.EnsureUser(ctx, sender); err != nil {
				return err
			}

			lang, err := users.Language(ctx, sender.ID)
			if err != nil {
				log.Warn("failed to load user language", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			}
			if lang == "" && catalog.Supports(sender.LanguageCode) {
				lang = sender.LanguageCode
			}
			handlers.SetTranslator(c, catalog.Translator(lang))

			return next(c)
		}
	}
}
