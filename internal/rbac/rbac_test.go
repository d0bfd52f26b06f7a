package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parcelhub/parcelhub/internal/shared"
)

var (
	superAdmin  = shared.Principal{UserID: 1, Role: shared.RoleSuperAdmin}
	officeAdmin = shared.Principal{UserID: 2, Role: shared.RoleOfficeAdmin, OfficeID: "pokhara"}
	unbound     = shared.Principal{UserID: 3, Role: shared.RoleOfficeAdmin}
)

func TestGrantsByRole(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	admin := svc.Grants(ctx, superAdmin)
	assert.True(t, admin.All(PermBranchManage, PermBusManage, PermAnalyticsOrganization))
	assert.False(t, admin.Has(PermShipmentCreate))

	office := svc.Grants(ctx, officeAdmin)
	assert.True(t, office.All(PermShipmentCreate, PermShipmentTransition, PermBranchSelf))
	assert.False(t, office.Any(PermBranchManage, PermBusManage))

	assert.Empty(t, svc.Grants(ctx, unbound))
	assert.Empty(t, svc.Grants(ctx, shared.Principal{Role: shared.RolePublic}))
	assert.IsIncreasing(t, svc.EffectivePermissions(ctx, officeAdmin))
}

func TestSetSemantics(t *testing.T) {
	s := NewSet("a", "b", "")
	assert.Len(t, s, 2)
	assert.True(t, s.Any())
	assert.True(t, s.All())
	assert.True(t, s.Any("x", "b"))
	assert.False(t, s.All("a", "x"))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
}

func serve(mw func(http.Handler) http.Handler, p *shared.Principal) int {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), *p))
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res.Code
}

func TestMiddleware(t *testing.T) {
	m := Middleware{Service: NewService()}

	assert.Equal(t, http.StatusUnauthorized, serve(m.RequireAny(PermBusView), nil))
	assert.Equal(t, http.StatusNoContent, serve(m.RequireAny(PermShipmentListAll, PermShipmentView), &officeAdmin))
	assert.Equal(t, http.StatusForbidden, serve(m.RequireAll(PermShipmentCreate), &superAdmin))
	assert.Equal(t, http.StatusForbidden, serve(m.RequireAll(PermShipmentCreate), &unbound))
	assert.Equal(t, http.StatusNoContent, serve(m.RequireRole(shared.RoleOfficeAdmin), &officeAdmin))
	assert.Equal(t, http.StatusForbidden, serve(m.RequireRole(shared.RoleOfficeAdmin), &superAdmin))
}

func TestPermissionsForMatchesCatalogue(t *testing.T) {
	known := NewSet()
	for _, p := range catalogue {
		known[p.Name] = struct{}{}
	}
	for _, role := range []shared.Role{shared.RoleSuperAdmin, shared.RoleOfficeAdmin} {
		assert.True(t, known.All(PermissionsFor(role)...), role)
	}
}
