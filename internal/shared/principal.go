package shared

import "strings"

// Role is the closed set of identities the platform recognises.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleOfficeAdmin Role = "OFFICE_ADMIN"
	RolePublic      Role = "PUBLIC"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleOfficeAdmin, RolePublic:
		return true
	default:
		return false
	}
}

// ParseRole normalises a role string, returning RolePublic for unknown input.
func ParseRole(raw string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return RolePublic
	}
	return r
}

// Principal is the authenticated actor for a request. It is built from token
// claims and passed explicitly into every authorization decision.
type Principal struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	// OfficeID is the branch slug administered by an OFFICE_ADMIN; empty otherwise.
	OfficeID string `json:"office_id,omitempty"`
}

// Anonymous is the principal used for unauthenticated reads.
var Anonymous = Principal{Role: RolePublic}

// IsSuperAdmin reports whether p administers the whole network.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

// IsOfficeAdmin reports whether p administers a branch.
func (p Principal) IsOfficeAdmin() bool {
	return p.Role == RoleOfficeAdmin && p.OfficeID != ""
}

// Administers reports whether p is the admin of the given branch.
func (p Principal) Administers(officeID string) bool {
	return p.IsOfficeAdmin() && officeID != "" && p.OfficeID == officeID
}
