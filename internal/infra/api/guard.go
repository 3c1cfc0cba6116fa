package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/adapter"
	"xpanel/internal/infra/logging"
	"xpanel/internal/infra/metrics"
	"xpanel/internal/infra/redis"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := r.Header.Get("X-Request-ID")
			if tid == "" || len(tid) > 64 {
				tid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", tid)
			ctx := logging.WithTraceID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLog logs every request and records the per-route HTTP metrics.
func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			route := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				route = rc.RoutePattern()
			}
			metrics.ObserveHTTP(route, r.Method, ww.status, elapsed)

			l := logging.With(r.Context(), logger)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", route).
				Str("ip", clientIP(r)).
				Int("status", ww.status).
				Dur("duration", elapsed).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					writeJSON(w, http.StatusInternalServerError, envelope{Kind: "internal_error", Message: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ===== Identity =====

type identityKey struct{}

// tokenErrKey carries the reason an Authorization header was rejected, so optional-auth
// handlers can tell "no token" from "bad token".
type tokenErrKey struct{}

func withIdentity(ctx context.Context, id *adapter.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, id)
	return logging.WithAccountID(ctx, id.AccountID)
}

func IdentityFrom(ctx context.Context) (*adapter.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*adapter.Identity)
	return id, ok && id != nil
}

func tokenErrFrom(ctx context.Context) error {
	err, _ := ctx.Value(tokenErrKey{}).(error)
	return err
}

// OptionalAuth attaches the identity of a valid bearer token and otherwise lets the request through.
func OptionalAuth(tokens adapter.TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tok, err := bearerToken(r)
			if err == nil {
				var id *adapter.Identity
				if id, err = tokens.Verify(tok); err == nil {
					ctx = withIdentity(ctx, id)
				}
			}
			if err != nil && err != errMissingToken {
				ctx = context.WithValue(ctx, tokenErrKey{}, err)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate rejects requests without a valid bearer token.
func (rs *responder) Authenticate(tokens adapter.TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := bearerToken(r)
			if err != nil {
				rs.fail(w, r, domain.ErrUnauthorized)
				return
			}
			id, err := tokens.Verify(tok)
			if err != nil {
				rs.fail(w, r, domain.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func (rs *responder) RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			route := "admin"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			if !ok {
				metrics.IncAdminRequest(route, "unauthorized")
				rs.fail(w, r, domain.ErrUnauthorized)
				return
			}
			if id.Role != model.RoleAdmin {
				metrics.IncAdminRequest(route, "forbidden")
				l := logging.With(r.Context(), rs.log)
				l.Warn().Str("path", r.URL.Path).Msg("non-admin attempted admin route")
				rs.fail(w, r, domain.ErrForbidden)
				return
			}
			metrics.IncAdminRequest(route, "authorized")
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter is satisfied by *redis.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit applies a fixed window per client IP. Limiter failures let the request through.
func (rs *responder) RateLimit(limiter RateLimiter, action string, limit int, window time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := redis.ClientActionKey(clientIP(r), action)
			ok, err := limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				l := logging.With(r.Context(), rs.log)
				l.Warn().Err(err).Str("action", action).Msg("rate limiter unavailable, allowing request")
				metrics.IncRateLimit(action, "error")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				metrics.IncRateLimit(action, "limited")
				w.Header().Set("Retry-After", formatSeconds(window))
				rs.fail(w, r, domain.ErrRateLimited)
				return
			}
			metrics.IncRateLimit(action, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}
