package rbac

import (
	"github.com/parcelhub/parcelhub/internal/shared"
)

// Permission names. Roles map onto these statically; there is no per-user
// grant table.
const (
	PermShipmentView       = "shipment.view"
	PermShipmentListAll    = "shipment.list_all"
	PermShipmentCreate     = "shipment.create"
	PermShipmentTransition = "shipment.transition"

	PermBranchManage = "branch.manage"
	PermBranchSelf   = "branch.self"

	PermBusView   = "bus.view"
	PermBusManage = "bus.manage"

	PermAnalyticsOrganization = "analytics.organization"
	PermAnalyticsBranch       = "analytics.branch"

	PermMessagesView = "messages.view"
)

// Permission represents an atomic capability.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalogue = []Permission{
	{Name: PermShipmentView, Description: "View shipments related to the caller"},
	{Name: PermShipmentListAll, Description: "View every shipment in the network"},
	{Name: PermShipmentCreate, Description: "Book shipments from the caller's branch"},
	{Name: PermShipmentTransition, Description: "Dispatch, receive and deliver shipments"},
	{Name: PermBranchManage, Description: "Create and delete branches"},
	{Name: PermBranchSelf, Description: "Read and close the day of the caller's branch"},
	{Name: PermBusView, Description: "List buses"},
	{Name: PermBusManage, Description: "Create and delete buses"},
	{Name: PermAnalyticsOrganization, Description: "Network wide shipment analytics"},
	{Name: PermAnalyticsBranch, Description: "Branch scoped shipment analytics"},
	{Name: PermMessagesView, Description: "Read the notification log"},
}

var grants = map[shared.Role][]string{
	shared.RoleSuperAdmin: {
		PermShipmentView, PermShipmentListAll,
		PermBranchManage,
		PermBusView, PermBusManage,
		PermAnalyticsOrganization,
		PermMessagesView,
	},
	shared.RoleOfficeAdmin: {
		PermShipmentView, PermShipmentCreate, PermShipmentTransition,
		PermBranchSelf,
		PermBusView,
		PermAnalyticsBranch,
		PermMessagesView,
	},
}

// PermissionsFor returns the sorted permission names granted to a role.
func PermissionsFor(role shared.Role) []string {
	return NewSet(grants[role]...).Sorted()
}
