package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrPersistence        = errors.New("transaction could not be committed")

	// Access
	ErrUnauthorized    = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role")
	ErrAccountDisabled = errors.New("account is disabled")
	ErrRateLimited     = errors.New("too many requests")

	// Redemption codes
	ErrCodeNotFound        = errors.New("redemption code not found")
	ErrCodeExpired         = errors.New("redemption code has expired")
	ErrCodeRedeemedByOther = errors.New("redemption code already redeemed by another account")
	ErrCodeAlreadyUsed     = errors.New("redemption code already used")
	ErrCodeGeneration      = errors.New("could not generate a unique redemption code")

	ErrPlanNotFound         = errors.New("plan not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrCommissionNotPending = errors.New("commission is not pending")

	// Referrals and withdrawals
	ErrReferralCodeInvalid  = errors.New("referral code is not valid")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
	ErrInsufficientBalance  = errors.New("commission balance is insufficient")
)
