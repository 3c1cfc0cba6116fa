package usecase

import (
	"errors"
	"fmt"

	"xpanel/internal/domain"
)

// passThrough lists the errors callers are expected to branch on. Anything else that
// escapes a transaction is a storage problem.
var passThrough = []error{
	domain.ErrInvalidArgument,
	domain.ErrCodeNotFound,
	domain.ErrCodeExpired,
	domain.ErrCodeRedeemedByOther,
	domain.ErrCodeAlreadyUsed,
	domain.ErrCodeGeneration,
	domain.ErrPlanNotFound,
	domain.ErrAccountNotFound,
	domain.ErrAccountDisabled,
	domain.ErrCommissionNotPending,
	domain.ErrReferralCodeInvalid,
	domain.ErrWithdrawalNotPending,
	domain.ErrInsufficientBalance,
	domain.ErrNotFound,
}

// translateErr maps a failure at the transaction boundary to the domain taxonomy.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range passThrough {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
