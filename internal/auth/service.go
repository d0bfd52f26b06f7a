package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/parcelhub/parcelhub/internal/shared"
)

// Revoker is the subset of RevocationStore used by the service.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	RevokeIfActive(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	issuer  *Issuer
	revoker Revoker
	now     func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, issuer *Issuer, revoker Revoker) *Service {
	return &Service{repo: repo, issuer: issuer, revoker: revoker, now: time.Now}
}

// Login validates username/password credentials for the requested login type
// and issues a token pair. Every failure reports the same error so callers
// cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, username, password string, loginType LoginType) (TokenPair, *User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TokenPair{}, nil, shared.ErrInvalidCredentials
		}
		return TokenPair{}, nil, fmt.Errorf("auth: find user: %w", err)
	}
	if !user.IsActive {
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}
	if user.Role != loginType.Role() {
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}
	if user.Role == shared.RoleOfficeAdmin && user.OfficeID == "" {
		return TokenPair{}, nil, shared.ErrInvalidCredentials
	}
	pair, err := s.issuer.IssuePair(user.Principal())
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Refresh rotates a token pair. The refresh token must be valid and not yet
// revoked; the paired access token, when supplied, is revoked as well. The
// account is re-read so deactivated users cannot keep refreshing.
func (s *Service) Refresh(ctx context.Context, refreshToken, accessToken string) (TokenPair, error) {
	now := s.now()
	refreshClaims, err := s.issuer.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	var accessClaims *Claims
	if accessToken != "" {
		accessClaims, err = s.issuer.ParseIgnoringExpiry(accessToken, TokenAccess)
		if err != nil {
			return TokenPair{}, err
		}
		if accessClaims.Subject != refreshClaims.Subject {
			return TokenPair{}, fmt.Errorf("auth: token subjects differ: %w", shared.ErrTokenExpired)
		}
		revoked, err := s.revoker.IsRevoked(ctx, accessClaims.ID)
		if err != nil {
			return TokenPair{}, err
		}
		if revoked {
			return TokenPair{}, fmt.Errorf("auth: access token: %w", shared.ErrTokenExpired)
		}
	}

	fresh, err := s.revoker.RevokeIfActive(ctx, refreshClaims.ID, refreshClaims.Remaining(now))
	if err != nil {
		return TokenPair{}, err
	}
	if !fresh {
		return TokenPair{}, fmt.Errorf("auth: refresh token: %w", shared.ErrTokenExpired)
	}
	if accessClaims != nil {
		if err := s.revoker.Revoke(ctx, accessClaims.ID, accessClaims.Remaining(now)); err != nil {
			return TokenPair{}, err
		}
	}

	principal, err := refreshClaims.Principal()
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.repo.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("auth: account removed: %w", shared.ErrTokenExpired)
		}
		return TokenPair{}, fmt.Errorf("auth: find user: %w", err)
	}
	if !user.IsActive {
		return TokenPair{}, fmt.Errorf("auth: account disabled: %w", shared.ErrTokenExpired)
	}
	return s.issuer.IssuePair(user.Principal())
}

// Logout revokes the presented access token.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.Remaining(s.now()))
}

// Authenticate verifies an access token and returns its claims.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.issuer.Parse(raw, TokenAccess)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("auth: access token: %w", shared.ErrTokenExpired)
	}
	return claims, nil
}

// HashPassword produces a bcrypt hash for a new account.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hashed), nil
}
