package adapter

import "xpanel/internal/domain/model"

// Identity is what a verified bearer token says about its holder.
type Identity struct {
	AccountID int64
	Email     string
	Role      model.Role
}

// TokenVerifier checks a signed token and returns the identity it carries.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}
