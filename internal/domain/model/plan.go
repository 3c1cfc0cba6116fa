package model

import (
	"time"

	"xpanel/internal/domain"
)

// Plan is a subscription tier. Granted subscriptions copy what they need from it,
// so later edits never change what was already granted.
type Plan struct {
	ID           int64
	Name         string
	DurationDays int
	TrafficGB    int64
	DeviceLimit  int
	Price        int64 // minor currency units
	IsActive     bool
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == 0 }

// NewPlan validates and constructs an active plan. The ID is assigned by storage.
func NewPlan(name string, durationDays int, trafficGB int64, deviceLimit int, price int64) (*Plan, error) {
	p := &Plan{
		Name:         name,
		DurationDays: durationDays,
		TrafficGB:    trafficGB,
		DeviceLimit:  deviceLimit,
		Price:        price,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) Validate() error {
	if p.Name == "" || p.DurationDays <= 0 || p.TrafficGB < 0 || p.DeviceLimit <= 0 || p.Price < 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// PlanPatch is a partial edit; nil fields keep their current value.
type PlanPatch struct {
	Name         *string
	DurationDays *int
	TrafficGB    *int64
	DeviceLimit  *int
	Price        *int64
	IsActive     *bool
}

// Apply writes the set fields onto p and validates the result.
func (p *Plan) Apply(patch PlanPatch) error {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.DurationDays != nil {
		p.DurationDays = *patch.DurationDays
	}
	if patch.TrafficGB != nil {
		p.TrafficGB = *patch.TrafficGB
	}
	if patch.DeviceLimit != nil {
		p.DeviceLimit = *patch.DeviceLimit
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	return p.Validate()
}
