package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/donation-bot/internal/errors"
	"github.com/Proton-105/donation-bot/pkg/metrics"
)

// ErrUndeliverable is returned when Telegram refuses the chat permanently.
var ErrUndeliverable = errors.New("chat cannot receive messages")

// Sender is the part of *telebot.Bot used for delivery.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramNotifier sends messages directly through the Bot API, retrying transient
// failures behind a circuit breaker.
type TelegramNotifier struct {
	sender  Sender
	retry   apperrors.RetryPolicy
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier builds a notifier. A nil breaker gets the default configuration.
func NewTelegramNotifier(sender Sender, retry apperrors.RetryPolicy, breaker *apperrors.CircuitBreaker, log *slog.Logger) *TelegramNotifier {
	if log == nil {
		log = slog.Default()
	}
	if breaker == nil {
		breaker = apperrors.NewCircuitBreaker("telegram", apperrors.DefaultBreakerConfig, func(name string, from, to apperrors.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
	}

	return &TelegramNotifier{
		sender:  sender,
		retry:   retry,
		breaker: breaker,
		log:     log,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	what, opts, err := payload(msg)
	if err != nil {
		metrics.RecordNotification("invalid")
		return err
	}

	var permanent error
	err = n.retry.Do(ctx, func() error {
		return n.breaker.Call(func() error {
			_, sendErr := n.sender.Send(telebot.ChatID(msg.ChatID), what, opts...)
			if sendErr == nil {
				return nil
			}
			if isPermanent(sendErr) {
				// the chat is gone; Telegram itself is healthy
				permanent = sendErr
				return nil
			}
			return apperrors.NewExternalAPIError("telegram", sendErr)
		})
	})

	switch {
	case permanent != nil:
		metrics.RecordNotification("undeliverable")
		n.log.Warn("notification undeliverable",
			slog.Int64("chat_id", msg.ChatID),
			slog.Any("error", permanent),
		)
		return fmt.Errorf("%w: %v", ErrUndeliverable, permanent)
	case err != nil:
		metrics.RecordNotification("failed")
		n.log.Error("notification failed",
			slog.Int64("chat_id", msg.ChatID),
			slog.Any("error", err),
		)
		return fmt.Errorf("send notification: %w", err)
	}

	metrics.RecordNotification("sent")
	return nil
}

func payload(msg Message) (interface{}, []interface{}, error) {
	if msg.ChatID == 0 {
		return nil, nil, errors.New("notification without chat id")
	}

	var opts []interface{}
	if len(msg.Buttons) > 0 {
		markup, err := keyboard.Render(msg.Buttons)
		if err != nil {
			return nil, nil, fmt.Errorf("render buttons: %w", err)
		}
		opts = append(opts, markup)
	}
	if msg.HTML {
		opts = append(opts, telebot.ModeHTML)
	}

	if msg.PhotoID != "" {
		return &telebot.Photo{File: telebot.File{FileID: msg.PhotoID}, Caption: msg.Text}, opts, nil
	}
	return msg.Text, opts, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, telebot.ErrBlockedByUser) ||
		errors.Is(err, telebot.ErrChatNotFound) ||
		errors.Is(err, telebot.ErrUserIsDeactivated) ||
		errors.Is(err, telebot.ErrKickedFromGroup)
}

// DefaultRetryPolicy suits interactive notifications: a few quick attempts.
var DefaultRetryPolicy = apperrors.RetryPolicy{
	MaxRetries:     3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     3 * time.Second,
	Multiplier:     2.0,
}
