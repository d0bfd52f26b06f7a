package shared

import (
	"fmt"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	// ErrTokenExpired indicates a revoked, expired or malformed token.
	ErrTokenExpired = fmt.Errorf("%w: token expired or revoked", httpx.ErrUnauthorized)
)
