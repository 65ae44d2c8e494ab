package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func TestChecker_Check(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewChecker(testLogger(), time.Second)
	checker.AddCheck("redis", NewRedisChecker(redisPinger{client: client}))
	checker.AddCheck("database", CheckFunc(func(context.Context) error { return nil }))
	checker.AddCheck("", CheckFunc(func(context.Context) error { return nil }))
	checker.AddCheck("nil", nil)

	results, healthy := checker.Check(context.Background())
	assert.True(t, healthy)
	assert.Equal(t, map[string]string{"redis": StatusOK, "database": StatusOK}, results)

	mr.Close()

	results, healthy = checker.Check(context.Background())
	assert.False(t, healthy)
	assert.NotEqual(t, StatusOK, results["redis"])
	assert.Equal(t, StatusOK, results["database"])
}

func TestChecker_CheckTimesOut(t *testing.T) {
	checker := NewChecker(testLogger(), 10*time.Millisecond)
	checker.AddCheck("slow", CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	results, healthy := checker.Check(context.Background())

	assert.False(t, healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), results["slow"])
}

func TestCheckers_Unconfigured(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, NewDBChecker(nil).HealthCheck(ctx))
	assert.Error(t, NewRedisChecker(nil).HealthCheck(ctx))
	assert.Error(t, NewTelegramChecker(nil).HealthCheck(ctx))
}

func TestRoutes(t *testing.T) {
	failing := false
	checker := NewChecker(testLogger(), time.Second)
	checker.AddCheck("database", CheckFunc(func(context.Context) error {
		if failing {
			return errors.New("connection refused")
		}
		return nil
	}))
	handler := Routes(checker, testLogger())

	tests := []struct {
		name    string
		path    string
		failing bool
		code    int
		status  string
	}{
		{name: "liveness", path: "/healthz", code: http.StatusOK, status: "ok"},
		{name: "liveness ignores dependencies", path: "/healthz", failing: true, code: http.StatusOK, status: "ok"},
		{name: "ready", path: "/readyz", code: http.StatusOK, status: "ok"},
		{name: "degraded", path: "/readyz", failing: true, code: http.StatusServiceUnavailable, status: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing = tt.failing
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.code, rr.Code)
			var body response
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
		})
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
