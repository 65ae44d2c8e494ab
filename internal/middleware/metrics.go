package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/handlers"
	"github.com/Proton-105/donation-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(CommandLabel(c), status, time.Since(start))

		return err
	}
}

// CommandLabel reduces an update to a low-cardinality label: the command name,
// the callback prefix without ids, or the message kind.
func CommandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		return callbackPrefix(cb.Data)
	}

	msg := c.Message()
	if msg == nil {
		return "unknown"
	}

	switch {
	case msg.Photo != nil:
		return "photo"
	case msg.Document != nil:
		return "document"
	case strings.HasPrefix(msg.Text, "/"):
		cmd := strings.Fields(msg.Text)[0]
		if at := strings.IndexByte(cmd, '@'); at > 0 {
			cmd = cmd[:at]
		}
		return cmd
	case msg.Text != "":
		return "text"
	default:
		return "other"
	}
}

func callbackPrefix(data string) string {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.LastIndexByte(data, '_'); i > 0 {
		tail := data[i+1:]
		if tail != "" && strings.Trim(tail, "0123456789") == "" {
			return data[:i]
		}
	}
	if i := strings.IndexByte(data, '|'); i > 0 {
		return data[:i]
	}
	return data
}
