package rbac

import (
	"context"
	"sort"

	"github.com/parcelhub/parcelhub/internal/shared"
)

// Set is a collection of permission names.
type Set map[string]struct{}

// NewSet builds a Set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether name is in s.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Any reports whether s holds at least one of names. An empty names list is
// satisfied.
func (s Set) Any(names ...string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if s.Has(n) {
			return true
		}
	}
	return false
}

// All reports whether s holds every one of names.
func (s Set) All(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Sorted returns the names in s in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Service resolves permissions for principals.
type Service struct{}

// NewService constructs a Service.
func NewService() *Service {
	return &Service{}
}

// Grants returns the permissions held by p. Office admins not bound to a
// branch hold nothing, as does any principal with an unknown role.
func (s *Service) Grants(_ context.Context, p shared.Principal) Set {
	if p.Role == shared.RoleOfficeAdmin && p.OfficeID == "" {
		return Set{}
	}
	return NewSet(grants[p.Role]...)
}

// EffectivePermissions returns the sorted names Grants reports.
func (s *Service) EffectivePermissions(ctx context.Context, p shared.Principal) []string {
	return s.Grants(ctx, p).Sorted()
}

// ListPermissions returns the full permission catalogue.
func (s *Service) ListPermissions(context.Context) []Permission {
	out := make([]Permission, len(catalogue))
	copy(out, catalogue)
	return out
}
