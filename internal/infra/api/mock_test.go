//go:build !integration

package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/usecase"
)

// --- Mock Use Cases ---

type MockCodeManager struct {
	usecase.CodeManager
	GenerateFunc func(ctx context.Context, req usecase.GenerateRequest) (*usecase.GeneratedBatch, error)
	ListFunc     func(ctx context.Context, q usecase.CodeQuery) ([]*model.RedemptionCode, int, error)
	DeleteFunc   func(ctx context.Context, code string) error
}

func (m *MockCodeManager) Generate(ctx context.Context, req usecase.GenerateRequest) (*usecase.GeneratedBatch, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return nil, errors.New("GenerateFunc not set")
}

func (m *MockCodeManager) List(ctx context.Context, q usecase.CodeQuery) ([]*model.RedemptionCode, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	return nil, 0, nil
}

func (m *MockCodeManager) Delete(ctx context.Context, code string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, code)
	}
	return nil
}

type MockActivation struct {
	mu         sync.Mutex
	RedeemFunc func(ctx context.Context, req usecase.RedeemRequest) (*usecase.ActivationResult, error)
	Requests   []usecase.RedeemRequest
}

func (m *MockActivation) Redeem(ctx context.Context, req usecase.RedeemRequest) (*usecase.ActivationResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, req)
	}
	return &usecase.ActivationResult{PlanName: "Monthly", DurationDays: 30, TrafficGB: 100, DeviceLimit: 3, AccountID: req.AccountID}, nil
}

func (m *MockActivation) last() (usecase.RedeemRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return usecase.RedeemRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

type MockPlanUseCase struct {
	usecase.PlanUseCase
	CreateFunc func(ctx context.Context, in usecase.PlanInput) (*model.Plan, error)
	GetFunc    func(ctx context.Context, id int64) (*model.Plan, error)
	UpdateFunc func(ctx context.Context, id int64, patch model.PlanPatch) (*model.Plan, error)
	ListFunc   func(ctx context.Context, activeOnly bool) ([]*model.Plan, error)
}

func (m *MockPlanUseCase) Get(ctx context.Context, id int64) (*model.Plan, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrPlanNotFound
}

func (m *MockPlanUseCase) Update(ctx context.Context, id int64, patch model.PlanPatch) (*model.Plan, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil, domain.ErrPlanNotFound
}

func (m *MockPlanUseCase) Create(ctx context.Context, in usecase.PlanInput) (*model.Plan, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in)
	}
	return &model.Plan{ID: 1, Name: in.Name, DurationDays: in.DurationDays, DeviceLimit: in.DeviceLimit, IsActive: true}, nil
}

func (m *MockPlanUseCase) List(ctx context.Context, activeOnly bool) ([]*model.Plan, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, activeOnly)
	}
	return []*model.Plan{}, nil
}

type MockAccountUseCase struct {
	usecase.AccountUseCase
	GetFunc                 func(ctx context.Context, id int64) (*model.Account, error)
	ListFunc                func(ctx context.Context, search string, page usecase.Page) ([]*model.Account, int, error)
	SetStatusFunc           func(ctx context.Context, id int64, status model.AccountStatus) (*model.Account, error)
	CurrentSubscriptionFunc func(ctx context.Context, accountID int64) (*usecase.CurrentSubscription, error)
}

func (m *MockAccountUseCase) Get(ctx context.Context, id int64) (*model.Account, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountUseCase) SetStatus(ctx context.Context, id int64, status model.AccountStatus) (*model.Account, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status)
	}
	return &model.Account{ID: id, Status: status, Role: model.RoleUser}, nil
}

func (m *MockAccountUseCase) List(ctx context.Context, search string, page usecase.Page) ([]*model.Account, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, search, page)
	}
	return nil, 0, nil
}

func (m *MockAccountUseCase) CurrentSubscription(ctx context.Context, accountID int64) (*usecase.CurrentSubscription, error) {
	if m.CurrentSubscriptionFunc != nil {
		return m.CurrentSubscriptionFunc(ctx, accountID)
	}
	return nil, nil
}

type MockCommissionUseCase struct {
	usecase.CommissionUseCase
	ListFunc   func(ctx context.Context, status model.CommissionStatus, page usecase.Page) ([]*model.Commission, int, error)
	SettleFunc func(ctx context.Context, id int64) (*model.Commission, error)
}

func (m *MockCommissionUseCase) List(ctx context.Context, status model.CommissionStatus, page usecase.Page) ([]*model.Commission, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, page)
	}
	return nil, 0, nil
}

func (m *MockCommissionUseCase) Settle(ctx context.Context, id int64) (*model.Commission, error) {
	if m.SettleFunc != nil {
		return m.SettleFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type MockReferralUseCase struct {
	OverviewFunc    func(ctx context.Context, accountID int64, page usecase.Page) (*usecase.ReferralOverview, error)
	CommissionsFunc func(ctx context.Context, accountID int64, status model.CommissionStatus, page usecase.Page) ([]*model.Commission, int, error)
}

func (m *MockReferralUseCase) Overview(ctx context.Context, accountID int64, page usecase.Page) (*usecase.ReferralOverview, error) {
	if m.OverviewFunc != nil {
		return m.OverviewFunc(ctx, accountID, page)
	}
	return &usecase.ReferralOverview{}, nil
}

func (m *MockReferralUseCase) Commissions(ctx context.Context, accountID int64, status model.CommissionStatus, page usecase.Page) ([]*model.Commission, int, error) {
	if m.CommissionsFunc != nil {
		return m.CommissionsFunc(ctx, accountID, status, page)
	}
	return nil, 0, nil
}

type MockWithdrawalUseCase struct {
	RequestFunc  func(ctx context.Context, req usecase.WithdrawalRequest) (*model.Withdrawal, error)
	ListMineFunc func(ctx context.Context, accountID int64, page usecase.Page) ([]*model.Withdrawal, int, error)
	ListFunc     func(ctx context.Context, status model.WithdrawalStatus, page usecase.Page) ([]*model.Withdrawal, int, error)
	ApproveFunc  func(ctx context.Context, id int64, note string) (*model.Withdrawal, error)
	RejectFunc   func(ctx context.Context, id int64, note string) (*model.Withdrawal, error)
}

func (m *MockWithdrawalUseCase) Request(ctx context.Context, req usecase.WithdrawalRequest) (*model.Withdrawal, error) {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, req)
	}
	return &model.Withdrawal{ID: 1, AccountID: req.AccountID, Amount: req.Amount, Method: req.Method, Status: model.WithdrawalStatusPending}, nil
}

func (m *MockWithdrawalUseCase) ListMine(ctx context.Context, accountID int64, page usecase.Page) ([]*model.Withdrawal, int, error) {
	if m.ListMineFunc != nil {
		return m.ListMineFunc(ctx, accountID, page)
	}
	return nil, 0, nil
}

func (m *MockWithdrawalUseCase) List(ctx context.Context, status model.WithdrawalStatus, page usecase.Page) ([]*model.Withdrawal, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, page)
	}
	return nil, 0, nil
}

func (m *MockWithdrawalUseCase) Approve(ctx context.Context, id int64, note string) (*model.Withdrawal, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id, note)
	}
	return nil, domain.ErrNotFound
}

func (m *MockWithdrawalUseCase) Reject(ctx context.Context, id int64, note string) (*model.Withdrawal, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id, note)
	}
	return nil, domain.ErrNotFound
}

// --- Mock Rate Limiter ---

type MockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Keys      []string
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.Keys = append(m.Keys, key)
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}
