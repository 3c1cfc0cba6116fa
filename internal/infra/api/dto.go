package api

import (
	"time"

	"xpanel/internal/domain/model"
	"xpanel/internal/infra/logging"
	"xpanel/internal/usecase"
)

type codeDTO struct {
	ID         int64      `json:"id"`
	Code       string     `json:"code"`
	PlanID     int64      `json:"plan_id"`
	BatchID    string     `json:"batch_id,omitempty"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at"`
	RedeemedBy *int64     `json:"redeemed_by"`
	RedeemedAt *time.Time `json:"redeemed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toCodeDTOs(codes []*model.RedemptionCode) []codeDTO {
	out := make([]codeDTO, 0, len(codes))
	for _, c := range codes {
		out = append(out, codeDTO{
			ID:         c.ID,
			Code:       c.Code,
			PlanID:     c.PlanID,
			BatchID:    c.BatchID,
			Status:     string(c.Status),
			ExpiresAt:  c.ExpiresAt,
			RedeemedBy: c.RedeemedBy,
			RedeemedAt: c.RedeemedAt,
			CreatedAt:  c.CreatedAt,
		})
	}
	return out
}

type planDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DurationDays int       `json:"duration_days"`
	TrafficGB    int64     `json:"traffic_gb"`
	DeviceLimit  int       `json:"device_limit"`
	Price        int64     `json:"price"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toPlanDTO(p *model.Plan) planDTO {
	return planDTO{
		ID:           p.ID,
		Name:         p.Name,
		DurationDays: p.DurationDays,
		TrafficGB:    p.TrafficGB,
		DeviceLimit:  p.DeviceLimit,
		Price:        p.Price,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}

func toPlanDTOs(plans []*model.Plan) []planDTO {
	out := make([]planDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanDTO(p))
	}
	return out
}

type accountDTO struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	Status            string    `json:"status"`
	ReferralCode      string    `json:"referral_code"`
	ReferredBy        *int64    `json:"referred_by"`
	Balance           int64     `json:"balance"`
	CommissionBalance int64     `json:"commission_balance"`
	CreatedAt         time.Time `json:"created_at"`
}

func toAccountDTO(a *model.Account) accountDTO {
	return accountDTO{
		ID:                a.ID,
		Email:             a.Email,
		Role:              string(a.Role),
		Status:            string(a.Status),
		ReferralCode:      a.ReferralCode,
		ReferredBy:        a.ReferredBy,
		Balance:           a.Balance,
		CommissionBalance: a.CommissionBalance,
		CreatedAt:         a.CreatedAt,
	}
}

func toAccountDTOs(accounts []*model.Account) []accountDTO {
	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	return out
}

type subscriptionDTO struct {
	ID           int64     `json:"id"`
	PlanID       int64     `json:"plan_id"`
	PlanName     string    `json:"plan_name,omitempty"`
	Status       string    `json:"status"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	TrafficUsed  int64     `json:"traffic_used"`
	TrafficTotal int64     `json:"traffic_total"`
	DeviceLimit  int       `json:"device_limit"`
}

func toSubscriptionDTO(cur *usecase.CurrentSubscription) *subscriptionDTO {
	if cur == nil || cur.Subscription == nil {
		return nil
	}
	s := cur.Subscription
	dto := &subscriptionDTO{
		ID:           s.ID,
		PlanID:       s.PlanID,
		Status:       string(s.Status),
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		TrafficUsed:  s.TrafficUsed,
		TrafficTotal: s.TrafficTotal,
		DeviceLimit:  s.DeviceLimit,
	}
	if cur.Plan != nil {
		dto.PlanName = cur.Plan.Name
	}
	return dto
}

type commissionDTO struct {
	ID                int64      `json:"id"`
	ReferrerAccountID int64      `json:"referrer_account_id"`
	RefereeAccountID  int64      `json:"referee_account_id"`
	Amount            int64      `json:"amount"`
	Status            string     `json:"status"`
	SourceRef         string     `json:"source_ref"`
	CreatedAt         time.Time  `json:"created_at"`
	SettledAt         *time.Time `json:"settled_at"`
	WithdrawalID      *int64     `json:"withdrawal_id"`
}

func toCommissionDTO(c *model.Commission) commissionDTO {
	return commissionDTO{
		ID:                c.ID,
		ReferrerAccountID: c.ReferrerAccountID,
		RefereeAccountID:  c.RefereeAccountID,
		Amount:            c.Amount,
		Status:            string(c.Status),
		SourceRef:         c.SourceRef,
		CreatedAt:         c.CreatedAt,
		SettledAt:         c.SettledAt,
		WithdrawalID:      c.WithdrawalID,
	}
}

func toCommissionDTOs(list []*model.Commission) []commissionDTO {
	out := make([]commissionDTO, 0, len(list))
	for _, c := range list {
		out = append(out, toCommissionDTO(c))
	}
	return out
}

type activationDTO struct {
	PlanName        string     `json:"plan_name"`
	DurationDays    int        `json:"duration_days"`
	TrafficGB       int64      `json:"traffic_gb"`
	DeviceLimit     int        `json:"device_limit"`
	AlreadyRedeemed bool       `json:"already_redeemed"`
	AccountID       int64      `json:"account_id"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
}

func toActivationDTO(res *usecase.ActivationResult) activationDTO {
	return activationDTO{
		PlanName:        res.PlanName,
		DurationDays:    res.DurationDays,
		TrafficGB:       res.TrafficGB,
		DeviceLimit:     res.DeviceLimit,
		AlreadyRedeemed: res.AlreadyRedeemed,
		AccountID:       res.AccountID,
		SubscriptionEnd: res.SubscriptionEnd,
	}
}

// referredDTO is what a referrer may see about the people they brought in.
type referredDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type referralOverviewDTO struct {
	ReferralCode      string           `json:"referral_code"`
	CommissionBalance int64            `json:"commission_balance"`
	Totals            map[string]int64 `json:"totals"`
	Referred          listPage         `json:"referred"`
}

func toReferralOverviewDTO(o *usecase.ReferralOverview, page usecase.Page) referralOverviewDTO {
	totals := make(map[string]int64, len(o.Totals))
	for status, amount := range o.Totals {
		totals[string(status)] = amount
	}
	referred := make([]referredDTO, 0, len(o.Referred))
	for _, a := range o.Referred {
		referred = append(referred, referredDTO{ID: a.ID, Email: logging.MaskEmail(a.Email), CreatedAt: a.CreatedAt})
	}
	return referralOverviewDTO{
		ReferralCode:      o.ReferralCode,
		CommissionBalance: o.CommissionBalance,
		Totals:            totals,
		Referred:          listPage{Data: referred, Total: o.ReferredCount, Page: page.Page, Limit: page.Limit},
	}
}

type withdrawalDTO struct {
	ID             int64      `json:"id"`
	AccountID      int64      `json:"account_id"`
	Amount         int64      `json:"amount"`
	Method         string     `json:"method"`
	PaymentAccount string     `json:"payment_account"`
	RealName       string     `json:"real_name"`
	Status         string     `json:"status"`
	AdminNote      string     `json:"admin_note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at"`
}

func toWithdrawalDTO(w *model.Withdrawal) withdrawalDTO {
	return withdrawalDTO{
		ID:             w.ID,
		AccountID:      w.AccountID,
		Amount:         w.Amount,
		Method:         string(w.Method),
		PaymentAccount: w.PaymentAccount,
		RealName:       w.RealName,
		Status:         string(w.Status),
		AdminNote:      w.AdminNote,
		CreatedAt:      w.CreatedAt,
		ProcessedAt:    w.ProcessedAt,
	}
}

func toWithdrawalDTOs(list []*model.Withdrawal) []withdrawalDTO {
	out := make([]withdrawalDTO, 0, len(list))
	for _, w := range list {
		out = append(out, toWithdrawalDTO(w))
	}
	return out
}
