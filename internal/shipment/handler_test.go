package shipment

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelhub/parcelhub/internal/rbac"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// headerAuth stands in for the bearer token middleware.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role")
		if role == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		p := shared.Principal{UserID: 7, Role: shared.ParseRole(role), OfficeID: r.Header.Get("X-Office")}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), p)))
	})
}

func newTestRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, f.service, headerAuth, rbac.Middleware{Service: rbac.NewService(), Logger: logger})
	r := chi.NewRouter()
	r.Route("/api/shipment", h.MountRoutes)
	return r, f
}

func call(router http.Handler, method, path, body, role, office string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Role", role)
	}
	if office != "" {
		req.Header.Set("X-Office", office)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func decodeShipment(t *testing.T, res *httptest.ResponseRecorder) ShipmentResponse {
	t.Helper()
	var body struct {
		Message string           `json:"message"`
		Data    ShipmentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body.Data
}

const createBody = `{
	"sender_name": "Sita",
	"sender_phone": "+9779800000001",
	"receiver_name": "Ram",
	"receiver_phone": "+9779800000002",
	"price": 450.5,
	"payment_mode": "RECEIVER_PAYS",
	"destination_branch_slug": "BranchB",
	"bus_slug": "bus-1",
	"day": "2026-03-04"
}`

func TestCreateEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	res := call(router, http.MethodPost, "/api/shipment/create/", createBody, "OFFICE_ADMIN", "BranchA")
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	got := decodeShipment(t, res)
	assert.Equal(t, "450.50", got.Price)
	assert.Equal(t, ReceiverPays, got.PaymentMode)
	assert.Equal(t, "2026-03-04", got.Day)
	assert.Equal(t, BranchRef{Slug: "BranchA", Title: "Branch A"}, got.SourceBranch)
	require.NotNil(t, got.Bus)
	assert.Equal(t, []int{1, 3, 5}, got.Bus.PreferredDays)
	require.Len(t, got.History, 1)
	assert.Equal(t, StatusBooked, got.History[0].Status)
}

func TestCreateEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	res := call(router, http.MethodPost, "/api/shipment/create/", `{"sender_name":"S","sender_phone":"123","receiver_name":"R","receiver_phone":"+9779800000002","price":10,"destination_branch_slug":"BranchB"}`, "OFFICE_ADMIN", "BranchA")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "SenderPhone")

	res = call(router, http.MethodPost, "/api/shipment/create/", createBody, "SUPER_ADMIN", "")
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = call(router, http.MethodPost, "/api/shipment/create/", createBody, "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestUpdateStatusEndpointMapsErrors(t *testing.T) {
	router, f := newTestRouter(t)
	f.store.seed("TRK-1001", "BranchA", "BranchB")
	path := "/api/shipment/TRK-1001/update-status/"

	res := call(router, http.MethodPatch, path, `{"status":"ARRIVED"}`, "OFFICE_ADMIN", "BranchB")
	assert.Equal(t, http.StatusConflict, res.Code, "arrive from BOOKED is stale")

	res = call(router, http.MethodPatch, path, `{"status":"ARRIVED"}`, "OFFICE_ADMIN", "BranchC")
	assert.Equal(t, http.StatusForbidden, res.Code, "other branches learn nothing")

	res = call(router, http.MethodPatch, path, `{"status":"IN_TRANSIT"}`, "OFFICE_ADMIN", "BranchB")
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = call(router, http.MethodPatch, path, `{"status":"IN_TRANSIT","remarks":"loaded on bus"}`, "OFFICE_ADMIN", "BranchA")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	got := decodeShipment(t, res)
	assert.Equal(t, StatusInTransit, got.CurrentStatus)
	require.Len(t, got.History, 2)
	require.NotNil(t, got.History[1].Remarks)
	assert.Equal(t, "loaded on bus", *got.History[1].Remarks)

	res = call(router, http.MethodPatch, path, `{"status":"IN_TRANSIT"}`, "OFFICE_ADMIN", "BranchA")
	assert.Equal(t, http.StatusConflict, res.Code)

	res = call(router, http.MethodPatch, path, `{"status":"LOST"}`, "OFFICE_ADMIN", "BranchA")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = call(router, http.MethodPatch, "/api/shipment/TRK-404/update-status/", `{"status":"IN_TRANSIT"}`, "OFFICE_ADMIN", "BranchA")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = call(router, http.MethodPatch, path, `{"status":"ARRIVED"}`, "SUPER_ADMIN", "")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestShowAndActionsEndpoints(t *testing.T) {
	router, f := newTestRouter(t)
	f.store.seed("TRK-1001", "BranchA", "BranchB")

	res := call(router, http.MethodGet, "/api/shipment/TRK-1001/", "", "OFFICE_ADMIN", "BranchC")
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = call(router, http.MethodGet, "/api/shipment/TRK-1001/", "", "SUPER_ADMIN", "")
	assert.Equal(t, http.StatusOK, res.Code)

	res = call(router, http.MethodGet, "/api/shipment/TRK-1001/actions/", "", "OFFICE_ADMIN", "BranchA")
	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Data ActionsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotNil(t, body.Data.NextAction)
	assert.Equal(t, "dispatch", body.Data.NextAction.Action)
	assert.False(t, body.Data.ReadOnly)

	res = call(router, http.MethodGet, "/api/shipment/TRK-1001/actions/", "", "SUPER_ADMIN", "")
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.True(t, body.Data.ReadOnly)
}

func TestListEndpoints(t *testing.T) {
	router, f := newTestRouter(t)
	f.store.seed("TRK-000001", "BranchA", "BranchB")
	f.store.seed("TRK-000002", "BranchB", "BranchC")

	var body struct {
		Data []ShipmentResponse `json:"data"`
	}
	res := call(router, http.MethodGet, "/api/shipment/list/", "", "SUPER_ADMIN", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)

	res = call(router, http.MethodGet, "/api/shipment/branch/list/", "", "OFFICE_ADMIN", "BranchA")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)

	res = call(router, http.MethodGet, "/api/shipment/branch/list/", "", "SUPER_ADMIN", "")
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = call(router, http.MethodGet, "/api/shipment/list/?day=03-02-2026", "", "SUPER_ADMIN", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestPublicTracking(t *testing.T) {
	router, f := newTestRouter(t)
	f.store.seed("TRK-1001", "BranchA", "BranchB")

	res := call(router, http.MethodGet, "/api/shipment/track/TRK-1001/", "", "", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "TRK-1001", decodeShipment(t, res).TrackingID)

	res = call(router, http.MethodGet, "/api/shipment/track/TRK-9999/", "", "", "")
	assert.Equal(t, http.StatusNotFound, res.Code)
}
