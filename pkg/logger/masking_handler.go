package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

const masked = "***"

// Keys whose values never reach a sink.
var secretKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"secret":        {},
	"api_key":       {},
	"authorization": {},
	"dsn":           {},
}

// Keys holding payment card details; only the last four digits survive.
var cardKeys = map[string]struct{}{
	"card":         {},
	"card_details": {},
	"details":      {},
}

// MaskingHandler redacts secrets and card numbers and stamps the correlation id
// before delegating to the next handler.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, redact(attr))
	}
	return &MaskingHandler{next: h.next.WithAttrs(out)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(redact(attr))
		return true
	})
	if id := CorrelationIDFromContext(ctx); id != "" {
		clean.AddAttrs(slog.String("correlation_id", id))
	}
	return h.next.Handle(ctx, clean)
}

func redact(attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	key := strings.ToLower(attr.Key)

	if _, ok := secretKeys[key]; ok {
		return slog.String(attr.Key, masked)
	}
	if _, ok := cardKeys[key]; ok && attr.Value.Kind() == slog.KindString {
		return slog.String(attr.Key, MaskCard(attr.Value.String()))
	}
	if attr.Value.Kind() != slog.KindGroup {
		return attr
	}

	group := attr.Value.Group()
	members := make([]any, 0, len(group))
	for _, inner := range group {
		members = append(members, redact(inner))
	}
	return slog.Group(attr.Key, members...)
}

// MaskCard keeps the last four digits of a card number and hides the rest.
// Values with fewer than eight digits are hidden entirely.
func MaskCard(details string) string {
	digits := make([]rune, 0, len(details))
	for _, r := range details {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 8 {
		return masked
	}
	return masked + string(digits[len(digits)-4:])
}
