package api

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"xpanel/internal/domain/ports/adapter"
	"xpanel/internal/infra/i18n"
	"xpanel/internal/infra/metrics"
	"xpanel/internal/usecase"
)

// Deps is everything the HTTP surface needs. Limiter may be nil, which disables rate limiting.
// Forwarding headers are ignored unless the peer falls into TrustedProxies.
type Deps struct {
	Codes       usecase.CodeManager
	Activation  usecase.ActivationUseCase
	Plans       usecase.PlanUseCase
	Accounts    usecase.AccountUseCase
	Commissions usecase.CommissionUseCase
	Referrals   usecase.ReferralUseCase
	Withdrawals usecase.WithdrawalUseCase

	Tokens      adapter.TokenVerifier
	Limiter     RateLimiter
	RedeemLimit int // per client per minute
	Catalog     *i18n.Catalog
	Health      func(ctx context.Context) error

	TrustedProxies []netip.Prefix

	RequestTimeout time.Duration
	Logger         *zerolog.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	rs := &responder{catalog: d.Catalog, log: d.Logger}
	h := &handlers{
		responder:   rs,
		codes:       d.Codes,
		activation:  d.Activation,
		plans:       d.Plans,
		accounts:    d.Accounts,
		commissions: d.Commissions,
		referrals:   d.Referrals,
		withdrawals: d.Withdrawals,
		ping:        d.Health,
	}

	r := chi.NewRouter()
	r.Use(
		ClientIP(d.TrustedProxies),
		TraceID(),
		RequestLog(d.Logger),
		Recover(d.Logger),
		Timeout(d.RequestTimeout),
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Kind: "not_found", Message: rs.t(req, "not_found")})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Kind: "method_not_allowed", Message: http.StatusText(http.StatusMethodNotAllowed)})
	})

	r.Get("/health", h.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/plans", h.publicPlans)

		r.With(
			OptionalAuth(d.Tokens),
			rs.RateLimit(d.Limiter, "redeem", d.RedeemLimit, time.Minute),
		).Post("/redemption/redeem", h.redeem)

		r.Route("/user", func(r chi.Router) {
			r.Use(rs.Authenticate(d.Tokens))

			r.Get("/subscription", h.mySubscription)
			r.Get("/referrals", h.myReferrals)
			r.Get("/referrals/commissions", h.myCommissions)
			r.Get("/withdrawals", h.myWithdrawals)
			r.Post("/withdrawals", h.requestWithdrawal)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(rs.Authenticate(d.Tokens), rs.RequireAdmin())

			r.Post("/redemption/generate", h.generateCodes)
			r.Get("/redemption", h.listCodes)
			r.Delete("/redemption/{code}", h.deleteCode)

			r.Get("/plans", h.adminPlans)
			r.Post("/plans", h.createPlan)
			r.Get("/plans/{id}", h.getPlan)
			r.Put("/plans/{id}", h.updatePlan)

			r.Get("/users", h.listUsers)
			r.Get("/users/{id}", h.getUser)
			r.Put("/users/{id}/status", h.setUserStatus)

			r.Get("/referrals/commissions", h.listCommissions)
			r.Post("/referrals/commissions/{id}/settle", h.settleCommission)

			r.Get("/withdrawals", h.listWithdrawals)
			r.Put("/withdrawals/{id}", h.processWithdrawal)
		})
	})
	return r
}
