package auth

import (
	"time"

	"github.com/parcelhub/parcelhub/internal/shared"
)

// LoginType selects which kind of account a login attempt targets.
type LoginType string

const (
	LoginOrganization LoginType = "organization"
	LoginBranch       LoginType = "branch"
)

// Role maps the login type onto the principal role it must resolve to.
func (t LoginType) Role() shared.Role {
	switch t {
	case LoginOrganization:
		return shared.RoleSuperAdmin
	case LoginBranch:
		return shared.RoleOfficeAdmin
	default:
		return shared.RolePublic
	}
}

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Name         string
	PasswordHash string
	Role         shared.Role
	// OfficeID is the slug of the branch this user owns, if any.
	OfficeID  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal projects the account onto the request principal.
func (u *User) Principal() shared.Principal {
	return shared.Principal{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
		OfficeID: u.OfficeID,
	}
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
