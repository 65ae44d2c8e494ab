package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_MasksSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Options{Level: "debug", Format: "json"}, &buf)

	ctx := WithCorrelationID(context.Background(), "corr-1")
	log.InfoContext(ctx, "connecting",
		slog.String("token", "123:abc"),
		slog.Group("db", slog.String("dsn", "postgres://u:p@h/db"), slog.String("host", "h")),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "***", record["token"])
	assert.Equal(t, "corr-1", record["correlation_id"])

	group, ok := record["db"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", group["dsn"])
	assert.Equal(t, "h", group["host"])
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Options{Level: "warn", Format: "text"}, &buf)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, log.Level())
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_TextFormatWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Options{Level: "info", Format: "text"}, &buf)

	log.Error("send failed", slog.Any("error", errors.New("boom")), slog.String("password", "secret"))

	out := buf.String()
	assert.Contains(t, out, "send failed")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, "\x1b[")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-42", seen)
}

func TestMaskCard(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "4149 4390 1234 5678", want: "***5678"},
		{in: "5375-4141-0000-0001 Monobank", want: "***0001"},
		{in: "1234", want: "***"},
		{in: "", want: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskCard(tt.in))
		})
	}
}

func TestLogger_MasksCardDetails(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Options{Level: "info", Format: "json"}, &buf)

	log.With(slog.String("card", "4149 4390 1234 5678")).Info("card added", slog.String("currency", "UAH"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "***5678", record["card"])
	assert.Equal(t, "UAH", record["currency"])
}
