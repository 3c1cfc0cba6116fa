package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/infra/i18n"
	"xpanel/internal/infra/logging"
)

// envelope is the single response shape of the API.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// listPage is the data of every paginated response.
type listPage struct {
	Data  any `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type errorMapping struct {
	status int
	kind   string
	msgKey string
}

// classify maps a domain error to its HTTP status, stable kind and message key.
func classify(err error) errorMapping {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return errorMapping{http.StatusBadRequest, "validation_error", "validation_error"}
	case errors.Is(err, domain.ErrUnauthorized):
		return errorMapping{http.StatusUnauthorized, "unauthorized", "unauthorized"}
	case errors.Is(err, domain.ErrForbidden):
		return errorMapping{http.StatusForbidden, "forbidden", "forbidden"}
	case errors.Is(err, domain.ErrReferralCodeInvalid):
		return errorMapping{http.StatusBadRequest, "invalid_referral_code", "invalid_referral_code"}
	case errors.Is(err, domain.ErrAccountDisabled):
		return errorMapping{http.StatusForbidden, "account_disabled", "account_disabled"}
	case errors.Is(err, domain.ErrCodeNotFound):
		return errorMapping{http.StatusNotFound, "not_found", "code_not_found"}
	case errors.Is(err, domain.ErrPlanNotFound):
		return errorMapping{http.StatusNotFound, "not_found", "plan_not_found"}
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrNotFound):
		return errorMapping{http.StatusNotFound, "not_found", "not_found"}
	case errors.Is(err, domain.ErrCodeRedeemedByOther):
		return errorMapping{http.StatusConflict, "already_redeemed_by_other", "already_redeemed_by_other"}
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return errorMapping{http.StatusConflict, "conflict", "code_already_used"}
	case errors.Is(err, domain.ErrCommissionNotPending):
		return errorMapping{http.StatusConflict, "conflict", "commission_not_pending"}
	case errors.Is(err, domain.ErrWithdrawalNotPending):
		return errorMapping{http.StatusConflict, "conflict", "withdrawal_not_pending"}
	case errors.Is(err, domain.ErrInsufficientBalance):
		return errorMapping{http.StatusConflict, "insufficient_balance", "insufficient_balance"}
	case errors.Is(err, domain.ErrAlreadyExists):
		return errorMapping{http.StatusConflict, "conflict", "conflict"}
	case errors.Is(err, domain.ErrCodeExpired):
		return errorMapping{http.StatusGone, "expired", "expired"}
	case errors.Is(err, domain.ErrRateLimited):
		return errorMapping{http.StatusTooManyRequests, "rate_limited", "rate_limited"}
	case errors.Is(err, domain.ErrCodeGeneration):
		return errorMapping{http.StatusInternalServerError, "generation_failed", "generation_failed"}
	default:
		return errorMapping{http.StatusInternalServerError, "internal_error", "internal_error"}
	}
}

// responder writes envelopes with messages in the caller's language.
type responder struct {
	catalog *i18n.Catalog
	log     *zerolog.Logger
}

func (rs *responder) t(r *http.Request, key string, args ...any) string {
	if rs.catalog == nil {
		return key
	}
	return rs.catalog.For(r.Header.Get("Accept-Language")).T(key, args...)
}

func (rs *responder) ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func (rs *responder) okMsg(w http.ResponseWriter, r *http.Request, data any, msgKey string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Message: rs.t(r, msgKey)})
}

func (rs *responder) list(w http.ResponseWriter, items any, total, page, limit int) {
	rs.ok(w, http.StatusOK, listPage{Data: items, Total: total, Page: page, Limit: limit})
}

// fail writes the error envelope. Internal error text is logged, never returned.
func (rs *responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	mapping := classify(err)

	var msg string
	if mapping.kind == "validation_error" {
		msg = rs.t(r, mapping.msgKey, validationDetail(err))
	} else {
		msg = rs.t(r, mapping.msgKey)
	}

	if mapping.status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), rs.log)
		l.Error().Err(err).Str("path", r.URL.Path).Str("kind", mapping.kind).Msg("request failed")
	}
	writeJSON(w, mapping.status, envelope{Success: false, Kind: mapping.kind, Message: msg})
}

func validationDetail(err error) string {
	prefix := domain.ErrInvalidArgument.Error()
	detail := strings.TrimPrefix(err.Error(), prefix)
	detail = strings.TrimPrefix(detail, ": ")
	if detail == "" {
		return prefix
	}
	return detail
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(d.Seconds()))
}
