package model

import (
	"crypto/rand"
	"io"
	"strings"
	"time"

	"xpanel/internal/domain"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account is a panel user. Guest accounts have no password hash.
type Account struct {
	ID                int64
	Email             string
	PasswordHash      *string
	Role              Role
	Status            AccountStatus
	ReferredBy        *int64
	ReferralCode      string // the code this account hands out to people it refers
	Balance           int64
	CommissionBalance int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewGuestAccount creates the account a guest redemption resolves to.
func NewGuestAccount(email string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	code, err := NewReferralCode(rand.Reader)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Account{
		Email:        email,
		Role:         RoleUser,
		Status:       AccountStatusActive,
		ReferralCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

const (
	referralAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referralCodeLength = 8
)

// NewReferralCode draws a fresh referral code from src. Uniqueness is enforced by storage.
func NewReferralCode(src io.Reader) (string, error) {
	buf := make([]byte, referralCodeLength)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = referralAlphabet[int(buf[i])%len(referralAlphabet)]
	}
	return string(buf), nil
}

// NormalizeReferralCode uppercases and trims a referral code typed by a user.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseAccountStatus accepts only the statuses an admin may set.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch st := AccountStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case AccountStatusActive, AccountStatusDisabled:
		return st, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// NormalizeEmail lowercases and trims an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Account) IsZero() bool   { return a == nil || a.ID == 0 }
func (a *Account) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a *Account) IsActive() bool { return a.Status == AccountStatusActive }
func (a *Account) IsReferred() bool {
	return a.ReferredBy != nil && *a.ReferredBy > 0
}
