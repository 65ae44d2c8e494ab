package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	"github.com/Proton-105/donation-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user and per-action rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter   ratelimit.Limiter
	rules     *ratelimit.Rules
	onLimited telebot.HandlerFunc
	log       *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component. onLimited replies to a
// throttled user and may be nil.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, onLimited telebot.HandlerFunc, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter:   limiter,
		rules:     rules,
		onLimited: onLimited,
		log:       log,
	}
}

// Handle returns a telebot middleware that enforces the configured limits. The
// per-user rule is checked first; an action rule is only consulted when it passes.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil || m.rules.Exempt(sender.ID) {
			return next(c)
		}

		ctx := handlers.ContextOf(c)
		userID := sender.ID

		if rule, ok := m.rules.PerUser(); ok && !m.allow(ctx, ratelimit.UserKey(userID), rule, userID) {
			return m.reject(c)
		}

		if action := ActionOf(c); action != "" {
			if rule, ok := m.rules.ForAction(action); ok && !m.allow(ctx, ratelimit.ActionKey(userID, action), rule, userID) {
				return m.reject(c)
			}
		}

		return next(c)
	}
}

func (m *RateLimitMiddleware) allow(ctx context.Context, key string, rule ratelimit.Rule, userID int64) bool {
	result, err := m.limiter.Check(ctx, key, rule.Limit, rule.Window)
	switch {
	case errors.Is(err, ratelimit.ErrLimitExceeded):
	case err != nil:
		m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
		return true
	case result == nil || result.Allowed:
		return true
	}

	m.log.Warn("rate limit exceeded",
		slog.Int64("user_id", userID),
		slog.String("key", key),
		slog.Int("retry_after_s", result.RetryAfter(time.Now())),
	)
	return false
}

func (m *RateLimitMiddleware) reject(c telebot.Context) error {
	if c.Callback() != nil {
		_ = c.Respond()
	}
	if m.onLimited == nil {
		return nil
	}
	return m.onLimited(c)
}

// ActionOf classifies updates that carry their own rate limit.
func ActionOf(c telebot.Context) string {
	if cb := c.Callback(); cb != nil {
		data := strings.TrimPrefix(cb.Data, "\f")
		switch {
		case strings.HasPrefix(data, "approve_"), strings.HasPrefix(data, "reject_"):
			return ratelimit.ActionDecision
		case strings.HasPrefix(data, "donate_to_"), strings.HasPrefix(data, "currency_"):
			return ratelimit.ActionDonate
		}
		return ""
	}

	msg := c.Message()
	if msg == nil {
		return ""
	}
	if msg.Photo != nil || msg.Document != nil {
		return ratelimit.ActionProof
	}
	if strings.HasPrefix(msg.Text, "/start donate_") || strings.HasPrefix(msg.Text, "/donate") {
		return ratelimit.ActionDonate
	}
	return ""
}
