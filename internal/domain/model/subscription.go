package model

import (
	"time"

	"xpanel/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// Subscription is the access grant an account holds. TrafficTotal and TrafficUsed are in GiB.
type Subscription struct {
	ID           int64
	AccountID    int64
	PlanID       int64
	Status       SubscriptionStatus
	StartDate    time.Time
	EndDate      time.Time
	TrafficUsed  int64
	TrafficTotal int64
	DeviceLimit  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSubscription starts a fresh grant of plan at now.
func NewSubscription(accountID int64, plan *Plan, now time.Time) (*Subscription, error) {
	if accountID <= 0 || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		AccountID:    accountID,
		PlanID:       plan.ID,
		Status:       SubscriptionStatusActive,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, plan.DurationDays),
		TrafficTotal: plan.TrafficGB,
		DeviceLimit:  plan.DeviceLimit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsCurrent reports whether the subscription is active and has not run out at now.
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && s.EndDate.After(now)
}

// Extend pushes the end date by the plan's duration, counted from whichever is later
// of the current end date and now, and adds the plan's traffic.
func (s *Subscription) Extend(plan *Plan, now time.Time) {
	base := s.EndDate
	if now.After(base) {
		base = now
	}
	s.EndDate = base.AddDate(0, 0, plan.DurationDays)
	s.TrafficTotal += plan.TrafficGB
	s.Status = SubscriptionStatusActive
	s.UpdatedAt = now
}
