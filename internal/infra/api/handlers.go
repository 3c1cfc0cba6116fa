package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/usecase"
)

type handlers struct {
	*responder
	codes       usecase.CodeManager
	activation  usecase.ActivationUseCase
	plans       usecase.PlanUseCase
	accounts    usecase.AccountUseCase
	commissions usecase.CommissionUseCase
	referrals   usecase.ReferralUseCase
	withdrawals usecase.WithdrawalUseCase
	ping        func(ctx context.Context) error
}

// ===== Redemption =====

type redeemRequest struct {
	Code         string `json:"code" validate:"required,max=64"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=32"`
}

// redeem resolves the caller in this order: a valid bearer token, then the body email.
// A rejected token without an email is 401; no identity at all is a validation error.
// referral_code only matters when the redemption creates the account.
func (h *handlers) redeem(w http.ResponseWriter, r *http.Request) {
	body, err := decode[redeemRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	req := usecase.RedeemRequest{Code: strings.TrimSpace(body.Code), ReferralCode: body.ReferralCode}
	id, authed := IdentityFrom(r.Context())
	switch {
	case authed:
		req.AccountID = id.AccountID
	case body.Email != "":
		req.Email = body.Email
	case tokenErrFrom(r.Context()) != nil:
		h.fail(w, r, domain.ErrUnauthorized)
		return
	default:
		h.fail(w, r, fmt.Errorf("%w: sign in or provide an email", domain.ErrInvalidArgument))
		return
	}

	res, err := h.activation.Redeem(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msgKey := "redeem_success"
	if res.AlreadyRedeemed {
		msgKey = "redeem_repeat"
	}
	h.okMsg(w, r, toActivationDTO(res), msgKey)
}

type generateRequest struct {
	PlanID    int64      `json:"plan_id" validate:"required,gt=0"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
	Prefix    string     `json:"prefix" validate:"omitempty,alphanum"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *handlers) generateCodes(w http.ResponseWriter, r *http.Request) {
	body, err := decode[generateRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req := usecase.GenerateRequest{
		PlanID:    body.PlanID,
		Quantity:  body.Quantity,
		Prefix:    body.Prefix,
		ExpiresAt: body.ExpiresAt,
	}
	if id, ok := IdentityFrom(r.Context()); ok {
		req.CreatedBy = &id.AccountID
	}

	batch, err := h.codes.Generate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, map[string]any{
		"batch_id": batch.BatchID,
		"plan_id":  batch.PlanID,
		"codes":    batch.Codes,
	})
}

func (h *handlers) listCodes(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	planID, err := queryInt(q, "plan_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	codes, total, err := h.codes.List(r.Context(), usecase.CodeQuery{
		Page:   page,
		Status: model.CodeStatus(q.Get("status")),
		Search: strings.TrimSpace(q.Get("search")),
		PlanID: int64(planID),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.list(w, toCodeDTOs(codes), total, page.Page, page.Limit)
}

func (h *handlers) deleteCode(w http.ResponseWriter, r *http.Request) {
	if err := h.codes.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, map[string]string{"code": chi.URLParam(r, "code")})
}

// ===== Plans =====

func (h *handlers) publicPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context(), true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toPlanDTOs(plans))
}

func (h *handlers) adminPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context(), false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toPlanDTOs(plans))
}

type planCreateRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	DurationDays int    `json:"duration_days" validate:"required,gt=0,lte=3650"`
	TrafficGB    int64  `json:"traffic_gb" validate:"gte=0"`
	DeviceLimit  int    `json:"device_limit" validate:"required,gt=0,lte=100"`
	Price        int64  `json:"price" validate:"gte=0"`
}

func (h *handlers) createPlan(w http.ResponseWriter, r *http.Request) {
	body, err := decode[planCreateRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := h.plans.Create(r.Context(), usecase.PlanInput{
		Name:         strings.TrimSpace(body.Name),
		DurationDays: body.DurationDays,
		TrafficGB:    body.TrafficGB,
		DeviceLimit:  body.DeviceLimit,
		Price:        body.Price,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, toPlanDTO(plan))
}

type planUpdateRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	DurationDays *int    `json:"duration_days" validate:"omitempty,gt=0,lte=3650"`
	TrafficGB    *int64  `json:"traffic_gb" validate:"omitempty,gte=0"`
	DeviceLimit  *int    `json:"device_limit" validate:"omitempty,gt=0,lte=100"`
	Price        *int64  `json:"price" validate:"omitempty,gte=0"`
	IsActive     *bool   `json:"is_active"`
}

func (h *handlers) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := h.plans.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toPlanDTO(plan))
}

// updatePlan changes only the fields present in the body. Deactivating is is_active=false.
func (h *handlers) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decode[planUpdateRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		body.Name = &name
	}
	plan, err := h.plans.Update(r.Context(), id, model.PlanPatch{
		Name:         body.Name,
		DurationDays: body.DurationDays,
		TrafficGB:    body.TrafficGB,
		DeviceLimit:  body.DeviceLimit,
		Price:        body.Price,
		IsActive:     body.IsActive,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toPlanDTO(plan))
}

// ===== Accounts =====

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	accounts, total, err := h.accounts.List(r.Context(), r.URL.Query().Get("search"), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.list(w, toAccountDTOs(accounts), total, page.Page, page.Limit)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	acc, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toAccountDTO(acc))
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active disabled"`
}

func (h *handlers) setUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decode[statusRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if caller, ok := IdentityFrom(r.Context()); ok && caller.AccountID == id {
		h.fail(w, r, fmt.Errorf("%w: admins cannot change their own status", domain.ErrInvalidArgument))
		return
	}
	acc, err := h.accounts.SetStatus(r.Context(), id, model.AccountStatus(body.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toAccountDTO(acc))
}

func (h *handlers) mySubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	cur, err := h.accounts.CurrentSubscription(r.Context(), id.AccountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// data is an explicit null when nothing is running.
	writeJSON(w, http.StatusOK, struct {
		Success bool             `json:"success"`
		Data    *subscriptionDTO `json:"data"`
	}{Success: true, Data: toSubscriptionDTO(cur)})
}

// ===== Commissions =====

func (h *handlers) listCommissions(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := model.CommissionStatus(r.URL.Query().Get("status"))
	list, total, err := h.commissions.List(r.Context(), status, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.list(w, toCommissionDTOs(list), total, page.Page, page.Limit)
}

func (h *handlers) settleCommission(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.commissions.Settle(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toCommissionDTO(c))
}

// ===== Referrals =====

func (h *handlers) myReferrals(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	overview, err := h.referrals.Overview(r.Context(), id.AccountID, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toReferralOverviewDTO(overview, page))
}

func (h *handlers) myCommissions(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := model.CommissionStatus(r.URL.Query().Get("status"))
	list, total, err := h.referrals.Commissions(r.Context(), id.AccountID, status, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.list(w, toCommissionDTOs(list), total, page.Page, page.Limit)
}

// ===== Withdrawals =====

type withdrawalRequest struct {
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Method         string `json:"method" validate:"required,oneof=alipay wechat bank"`
	PaymentAccount string `json:"payment_account" validate:"required,max=128"`
	RealName       string `json:"real_name" validate:"required,max=64"`
}

func (h *handlers) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	body, err := decode[withdrawalRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	wd, err := h.withdrawals.Request(r.Context(), usecase.WithdrawalRequest{
		AccountID:      id.AccountID,
		Amount:         body.Amount,
		Method:         model.WithdrawalMethod(body.Method),
		PaymentAccount: body.PaymentAccount,
		RealName:       body.RealName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, toWithdrawalDTO(wd))
}

func (h *handlers) myWithdrawals(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrUnauthorized)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, total, err := h.withdrawals.ListMine(r.Context(), id.AccountID, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.list(w, toWithdrawalDTOs(list), total, page.Page, page.Limit)
}

func (h *handlers) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := model.WithdrawalStatus(r.URL.Query().Get("status"))
	list, total, err := h.withdrawals.List(r.Context(), status, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.list(w, toWithdrawalDTOs(list), total, page.Page, page.Limit)
}

type processWithdrawalRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Note   string `json:"note" validate:"max=500"`
}

func (h *handlers) processWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decode[processWithdrawalRequest](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var wd *model.Withdrawal
	if body.Action == "approve" {
		wd, err = h.withdrawals.Approve(r.Context(), id, body.Note)
	} else {
		wd, err = h.withdrawals.Reject(r.Context(), id, body.Note)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toWithdrawalDTO(wd))
}

// ===== Health =====

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Kind: "unavailable", Message: "unavailable"})
			return
		}
	}
	h.ok(w, http.StatusOK, map[string]string{"status": "ok"})
}
