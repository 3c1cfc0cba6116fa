package model

import (
	"time"

	"xpanel/internal/domain"
)

type CodeStatus string

const (
	CodeStatusUnused CodeStatus = "unused"
	CodeStatusUsed   CodeStatus = "used"
)

// RedemptionCode is a single-use code that grants one plan to whoever redeems it first.
// Status is Used exactly when RedeemedBy and RedeemedAt are both set.
type RedemptionCode struct {
	ID         int64
	Code       string
	PlanID     int64
	BatchID    string
	Status     CodeStatus
	ExpiresAt  *time.Time // nil means the code never expires
	RedeemedBy *int64
	RedeemedAt *time.Time
	CreatedBy  *int64
	CreatedAt  time.Time
}

// NewRedemptionCode builds an unused code bound to a plan.
func NewRedemptionCode(code string, planID int64, batchID string, expiresAt *time.Time, createdBy *int64) (*RedemptionCode, error) {
	if code == "" || planID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &RedemptionCode{
		Code:      code,
		PlanID:    planID,
		BatchID:   batchID,
		Status:    CodeStatusUnused,
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}, nil
}

func (c *RedemptionCode) IsUsed() bool { return c.Status == CodeStatusUsed }

// IsExpired reports whether the expiry instant is not in the future relative to now.
func (c *RedemptionCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// RedeemedByAccount reports whether accountID consumed this code.
func (c *RedemptionCode) RedeemedByAccount(accountID int64) bool {
	return c.IsUsed() && c.RedeemedBy != nil && *c.RedeemedBy == accountID
}

// Redeem flips an unused, unexpired code to Used.
func (c *RedemptionCode) Redeem(accountID int64, at time.Time) error {
	if accountID <= 0 {
		return domain.ErrInvalidArgument
	}
	if c.IsUsed() {
		return domain.ErrCodeAlreadyUsed
	}
	if c.IsExpired(at) {
		return domain.ErrCodeExpired
	}
	c.Status = CodeStatusUsed
	c.RedeemedBy = &accountID
	c.RedeemedAt = &at
	return nil
}

// CodeFilter narrows admin listings of codes.
type CodeFilter struct {
	Status CodeStatus // empty matches every status
	Search string     // substring of the code
	PlanID int64
	Offset int
	Limit  int
}
