package model

import (
	"time"

	"xpanel/internal/domain"
)

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusSettled   CommissionStatus = "settled"
	CommissionStatusWithdrawn CommissionStatus = "withdrawn"
)

// Commission is owed to a referrer when an account they referred activates a plan.
type Commission struct {
	ID                int64
	ReferrerAccountID int64
	RefereeAccountID  int64
	Amount            int64
	Status            CommissionStatus
	SourceRef         string // unique per originating order or redemption
	CreatedAt         time.Time
	SettledAt         *time.Time
	WithdrawalID      *int64 // set once an approved withdrawal has paid this commission out
}

func NewCommission(referrerID, refereeID, amount int64, sourceRef string, now time.Time) (*Commission, error) {
	if referrerID <= 0 || refereeID <= 0 || amount < 0 || sourceRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Commission{
		ReferrerAccountID: referrerID,
		RefereeAccountID:  refereeID,
		Amount:            amount,
		Status:            CommissionStatusPending,
		SourceRef:         sourceRef,
		CreatedAt:         now,
	}, nil
}

// CommissionAmount returns percent of price, truncated to whole minor units.
func CommissionAmount(price int64, percent int) int64 {
	if price <= 0 || percent <= 0 {
		return 0
	}
	return price * int64(percent) / 100
}

// RedemptionSourceRef is the commission source reference for a redeemed code.
func RedemptionSourceRef(code string) string { return "redemption:" + code }

// CommissionFilter narrows listings of commissions. A zero ReferrerAccountID matches every referrer.
type CommissionFilter struct {
	Status            CommissionStatus
	ReferrerAccountID int64
	Offset            int
	Limit             int
}
