package adapter

import (
	"context"
	"time"
)

// ActivationEvent describes one completed code activation.
type ActivationEvent struct {
	Code           string    `json:"code"`
	AccountID      int64     `json:"account_id"`
	PlanID         int64     `json:"plan_id"`
	SubscriptionID int64     `json:"subscription_id"`
	EndDate        time.Time `json:"end_date"`
	Extended       bool      `json:"extended"`
	CommissionID   *int64    `json:"commission_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher delivers domain events to downstream consumers (provisioning, mailers).
// Publishing happens after commit and is best-effort.
type EventPublisher interface {
	PublishActivation(ctx context.Context, ev ActivationEvent) error
	Close() error
}
