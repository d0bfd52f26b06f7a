package analytics

import (
	"time"

	"github.com/parcelhub/parcelhub/internal/shared"
)

// Scope restricts a report to one branch. The zero value covers the whole network.
type Scope struct {
	OfficeID string
}

// IsOrganization reports whether the scope is network wide.
func (s Scope) IsOrganization() bool { return s.OfficeID == "" }

// Filter narrows the shipments a report covers. Zero fields do not filter.
type Filter struct {
	StartDay              *time.Time `json:"start_day,omitempty"`
	EndDay                *time.Time `json:"end_day,omitempty"`
	Statuses              []string   `json:"statuses,omitempty"`
	BranchSlug            string     `json:"branch_slug,omitempty"`
	SourceBranchSlug      string     `json:"source_branch_slug,omitempty"`
	DestinationBranchSlug string     `json:"destination_branch_slug,omitempty"`
	BusSlug               string     `json:"bus_slug,omitempty"`
	PaymentMode           string     `json:"payment_mode,omitempty"`
	MinPrice              *float64   `json:"min_price,omitempty"`
	MaxPrice              *float64   `json:"max_price,omitempty"`
	Search                string     `json:"search,omitempty"`
	Page                  int        `json:"page"`
	PageSize              int        `json:"page_size"`
}

// Totals are the headline figures of a report.
type Totals struct {
	Count        int    `json:"total_shipments"`
	Revenue      string `json:"total_revenue"`
	AveragePrice string `json:"average_price"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type PaymentModeCount struct {
	PaymentMode string `json:"payment_mode"`
	Count       int    `json:"count"`
}

// BranchRef is the minimal branch projection used in reports.
type BranchRef struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// BranchCount counts shipments that start or end at a branch.
type BranchCount struct {
	Branch       BranchRef `json:"branch"`
	Count        int       `json:"count"`
	TotalRevenue string    `json:"total_revenue"`
}

// Summary aggregates the filtered shipments. ByBranch is only filled for the
// organization scope.
type Summary struct {
	Totals
	ByStatus      []StatusCount      `json:"by_status"`
	ByPaymentMode []PaymentModeCount `json:"by_payment_mode"`
	ByBranch      []BranchCount      `json:"by_branch"`
}

type BusRef struct {
	Slug          string `json:"slug"`
	BusNumber     string `json:"bus_number"`
	PreferredDays []int  `json:"preferred_days"`
}

// Row is one shipment in the report table.
type Row struct {
	Slug              string    `json:"slug"`
	TrackingID        string    `json:"tracking_id"`
	SenderName        string    `json:"sender_name"`
	ReceiverName      string    `json:"receiver_name"`
	SourceBranch      BranchRef `json:"source_branch"`
	DestinationBranch BranchRef `json:"destination_branch"`
	Bus               *BusRef   `json:"bus"`
	Price             string    `json:"price"`
	PaymentMode       string    `json:"payment_mode"`
	CurrentStatus     string    `json:"current_status"`
	Day               string    `json:"day"`
	CreatedAt         time.Time `json:"created_at"`
}

// Report is the full analytics payload.
type Report struct {
	Summary    Summary           `json:"summary"`
	Data       []Row             `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}
