package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Auth(t *testing.T) {
	gw := New(types.GatewayConfig{
		APIKeys:    []string{"good-key"},
		RatePerSec: 100,
		RateBurst:  100,
	}, zerolog.Nop())
	handler := gw.Middleware(okHandler())

	t.Run("Missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want 401", rec.Code)
		}
	})

	t.Run("Wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-API-Key", "bad-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want 401", rec.Code)
		}
	})

	t.Run("Valid API key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-API-Key", "good-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Status = %d, want 200", rec.Code)
		}
	})

	t.Run("Bearer token substitutes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer good-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Status = %d, want 200", rec.Code)
		}
	})

	t.Run("No keys configured runs open", func(t *testing.T) {
		open := New(types.GatewayConfig{RatePerSec: 100, RateBurst: 100}, zerolog.Nop())
		rec := httptest.NewRecorder()
		open.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("Status = %d, want 200", rec.Code)
		}
	})
}

func TestMiddleware_RateLimit(t *testing.T) {
	gw := New(types.GatewayConfig{
		APIKeys:    []string{"k"},
		RatePerSec: 1,
		RateBurst:  2,
	}, zerolog.Nop())
	handler := gw.Middleware(okHandler())

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-API-Key", "k")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("Burst of 5 at burst=2 should trip the limiter")
	}
}

func TestQuotaManager(t *testing.T) {
	q := NewQuotaManager(map[string]int{"play": 2})

	t.Run("Consume until exhausted", func(t *testing.T) {
		if err := q.Consume("u1", "play"); err != nil {
			t.Fatalf("First consume failed: %v", err)
		}
		if err := q.Consume("u1", "play"); err != nil {
			t.Fatalf("Second consume failed: %v", err)
		}
		err := q.Consume("u1", "play")
		if err == nil {
			t.Fatal("Third consume should exceed the quota")
		}
		if !errs.IsKind(err, errs.QuotaExceeded) {
			t.Errorf("Kind = %s, want quota_exceeded", errs.KindOf(err))
		}
	})

	t.Run("Subjects are independent", func(t *testing.T) {
		if err := q.Consume("u2", "play"); err != nil {
			t.Errorf("Other subject should have its own quota: %v", err)
		}
	})

	t.Run("Unmetered class always allowed", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			if err := q.Consume("u1", "segment"); err != nil {
				t.Fatalf("Unmetered class rejected: %v", err)
			}
		}
	})

	t.Run("Resets at UTC midnight", func(t *testing.T) {
		day := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		q := NewQuotaManager(map[string]int{"play": 1})
		q.now = func() time.Time { return day }

		if err := q.Consume("u1", "play"); err != nil {
			t.Fatalf("Consume failed: %v", err)
		}
		if err := q.Consume("u1", "play"); err == nil {
			t.Fatal("Quota should be exhausted")
		}

		q.now = func() time.Time { return day.Add(24 * time.Hour) }
		if err := q.Consume("u1", "play"); err != nil {
			t.Errorf("Quota should reset the next day: %v", err)
		}
	})
}

func TestRequireQuota(t *testing.T) {
	gw := New(types.GatewayConfig{
		RatePerSec:  100,
		RateBurst:   100,
		DailyQuotas: map[string]int{"play": 1},
	}, zerolog.Nop())
	handler := gw.Middleware(gw.RequireQuota("play", okHandler()))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/play", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("First request = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/play", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Second request = %d, want 429", second.Code)
	}
}
