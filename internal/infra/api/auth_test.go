//go:build !integration

package api

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"xpanel/internal/domain/model"
)

func TestAuthManager(t *testing.T) {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	newManager := func(secret string) *AuthManager {
		m := NewAuthManager(secret, time.Hour)
		m.now = func() time.Time { return now }
		return m
	}

	t.Run("minted token verifies with the same secret", func(t *testing.T) {
		// --- Arrange ---
		m := newManager("s3cret")
		tok, err := m.Mint(42, "a@example.com", model.RoleAdmin)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}

		// --- Act ---
		id, err := m.Verify(tok)

		// --- Assert ---
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if id.AccountID != 42 || id.Email != "a@example.com" || id.Role != model.RoleAdmin {
			t.Errorf("unexpected identity %+v", id)
		}
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		tok, _ := newManager("other").Mint(42, "", model.RoleUser)
		if _, err := newManager("s3cret").Verify(tok); !errors.Is(err, errInvalidToken) {
			t.Errorf("expected errInvalidToken, got %v", err)
		}
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		m := newManager("s3cret")
		tok, _ := m.Mint(42, "", model.RoleUser)
		m.now = func() time.Time { return now.Add(2 * time.Hour) }
		if _, err := m.Verify(tok); !errors.Is(err, errInvalidToken) {
			t.Errorf("expected errInvalidToken, got %v", err)
		}
	})

	t.Run("rejects unsigned tokens", func(t *testing.T) {
		claims := AccountClaims{ID: 42, Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := newManager("s3cret").Verify(tok); err == nil {
			t.Error("expected alg=none to be rejected")
		}
	})

	t.Run("unknown role degrades to user", func(t *testing.T) {
		m := newManager("s3cret")
		tok, _ := m.Mint(7, "", model.Role("root"))
		id, err := m.Verify(tok)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if id.Role != model.RoleUser {
			t.Errorf("expected role user, got %q", id.Role)
		}
	})
}

func TestBearerToken(t *testing.T) {
	testCases := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"missing", "", "", errMissingToken},
		{"wrong scheme", "Basic abc", "", errInvalidToken},
		{"empty token", "Bearer   ", "", errInvalidToken},
		{"case insensitive scheme", "bearer abc.def", "abc.def", nil},
		{"trims whitespace", "Bearer  xyz ", "xyz", nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, err := bearerToken(r)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if got != tc.want {
				t.Errorf("expected token %q, got %q", tc.want, got)
			}
		})
	}
}
