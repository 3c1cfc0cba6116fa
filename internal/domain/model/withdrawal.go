package model

import (
	"strings"
	"time"

	"xpanel/internal/domain"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

type WithdrawalMethod string

const (
	WithdrawalMethodAlipay WithdrawalMethod = "alipay"
	WithdrawalMethodWechat WithdrawalMethod = "wechat"
	WithdrawalMethodBank   WithdrawalMethod = "bank"
)

// Withdrawal is a referrer's request to cash out commission balance.
// The balance is only debited when an admin approves it.
type Withdrawal struct {
	ID             int64
	AccountID      int64
	Amount         int64 // minor currency units
	Method         WithdrawalMethod
	PaymentAccount string
	RealName       string
	Status         WithdrawalStatus
	AdminNote      string
	CreatedAt      time.Time
	ProcessedAt    *time.Time
}

func NewWithdrawal(accountID, amount int64, method WithdrawalMethod, paymentAccount, realName string, now time.Time) (*Withdrawal, error) {
	paymentAccount = strings.TrimSpace(paymentAccount)
	realName = strings.TrimSpace(realName)
	if accountID <= 0 || amount <= 0 || paymentAccount == "" || realName == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch method {
	case WithdrawalMethodAlipay, WithdrawalMethodWechat, WithdrawalMethodBank:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &Withdrawal{
		AccountID:      accountID,
		Amount:         amount,
		Method:         method,
		PaymentAccount: paymentAccount,
		RealName:       realName,
		Status:         WithdrawalStatusPending,
		CreatedAt:      now,
	}, nil
}

func (w *Withdrawal) IsPending() bool { return w.Status == WithdrawalStatusPending }

// WithdrawalFilter narrows withdrawal listings. A zero AccountID matches every account.
type WithdrawalFilter struct {
	AccountID int64
	Status    WithdrawalStatus
	Offset    int
	Limit     int
}
