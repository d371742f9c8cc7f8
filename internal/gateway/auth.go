// Package gateway is the transport edge: authentication, burst rate
// limiting and daily quotas. No business logic lives here.
package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

type contextKey string

const (
	subjectKey contextKey = "gateway.subject"
	traceIDKey contextKey = "gateway.trace_id"
)

// Subject returns the authenticated subject from the request context
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey).(string); ok {
		return s
	}
	return ""
}

// TraceID returns the request trace id from the context
func TraceID(ctx context.Context) string {
	if s, ok := ctx.Value(traceIDKey).(string); ok {
		return s
	}
	return ""
}

// Gateway enforces the edge policies for every protected route
type Gateway struct {
	keys     map[string]struct{}
	limiters *limiterPool
	quotas   *QuotaManager
	log      zerolog.Logger
}

// New creates a gateway from config. API keys come from SR_API_KEYS via the
// config loader; unknown keys are rejected with unauthorized.
func New(cfg types.GatewayConfig, log zerolog.Logger) *Gateway {
	keys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys[k] = struct{}{}
	}
	return &Gateway{
		keys:     keys,
		limiters: newLimiterPool(cfg.RatePerSec, cfg.RateBurst),
		quotas:   NewQuotaManager(cfg.DailyQuotas),
		log:      log.With().Str("component", "gateway").Logger(),
	}
}

// credential extracts the API key or bearer token from the request
func credential(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// authenticate resolves the request subject. With no keys configured the
// gateway runs open (development mode) and the subject is "anonymous".
func (g *Gateway) authenticate(r *http.Request) (string, error) {
	if len(g.keys) == 0 {
		return "anonymous", nil
	}
	cred := credential(r)
	if cred == "" {
		return "", errs.New(errs.Unauthorized, "missing credential").
			WithHint("pass X-API-Key or a bearer token")
	}
	if _, ok := g.keys[cred]; !ok {
		return "", errs.New(errs.Unauthorized, "unknown credential")
	}
	return cred, nil
}

// Middleware wraps a handler with trace id stamping, authentication and the
// per-subject token bucket. WriteError lives in this package so the edge can
// answer before any handler code runs.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.NewString()
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)

		subject, err := g.authenticate(r)
		if err != nil {
			WriteError(w, err, traceID)
			return
		}

		if !g.limiters.allow(subject) {
			g.log.Warn().Str("trace_id", traceID).Str("subject", subject).Str("path", r.URL.Path).Msg("rate limited")
			WriteError(w, errs.New(errs.QuotaExceeded, "rate limit exceeded").
				WithHint("slow down request bursts"), traceID)
			return
		}

		ctx = context.WithValue(ctx, subjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireQuota gates a route class behind the subject's daily quota
func (g *Gateway) RequireQuota(class string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := Subject(r.Context())
		if err := g.quotas.Consume(subject, class); err != nil {
			WriteError(w, err, TraceID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
