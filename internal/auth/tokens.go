package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/parcelhub/parcelhub/internal/rbac"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims defines the JWT payload. Role and office id are trusted verbatim as
// the acting principal once the signature checks out.
type Claims struct {
	Type        TokenType `json:"token_type"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	OfficeID    string    `json:"office_id,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into a request principal.
func (c *Claims) Principal() (shared.Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("auth: subject %q: %w", c.Subject, shared.ErrTokenExpired)
	}
	return shared.Principal{
		UserID:   id,
		Username: c.Username,
		Name:     c.Name,
		Role:     shared.ParseRole(c.Role),
		OfficeID: c.OfficeID,
	}, nil
}

// Remaining returns how long until the token expires.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// IssuerConfig configures token signing.
type IssuerConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	cfg IssuerConfig
}

// NewIssuer constructs an Issuer.
func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{cfg: cfg}
}

// IssuePair mints a fresh access/refresh pair for p.
func (i *Issuer) IssuePair(p shared.Principal) (TokenPair, error) {
	access, err := i.sign(p, TokenAccess, i.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(p, TokenRefresh, i.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(p shared.Principal, typ TokenType, ttl time.Duration) (string, error) {
	now := i.cfg.Now()
	claims := &Claims{
		Type:     typ,
		Username: p.Username,
		Name:     p.Name,
		Role:     string(p.Role),
		OfficeID: p.OfficeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(p.UserID, 10),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if typ == TokenAccess {
		claims.Permissions = rbac.PermissionsFor(p.Role)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies signature, expiry and token type.
func (i *Issuer) Parse(raw string, want TokenType) (*Claims, error) {
	return i.parse(raw, want, true)
}

// ParseIgnoringExpiry verifies the signature but accepts expired tokens.
// Refresh uses it to revoke the access token that is being replaced.
func (i *Issuer) ParseIgnoringExpiry(raw string, want TokenType) (*Claims, error) {
	return i.parse(raw, want, false)
}

func (i *Issuer) parse(raw string, want TokenType, validateExpiry bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.cfg.Now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	if !validateExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.cfg.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: %w", shared.ErrTokenExpired)
		}
		return nil, fmt.Errorf("auth: %w: %v", shared.ErrTokenExpired, err)
	}
	if !token.Valid || claims.Type != want || claims.ID == "" {
		return nil, fmt.Errorf("auth: unexpected %s token: %w", want, shared.ErrTokenExpired)
	}
	return claims, nil
}
