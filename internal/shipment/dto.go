package shipment

import "time"

const dayLayout = "2006-01-02"

// CreateShipmentRequest is the booking payload.
type CreateShipmentRequest struct {
	SenderName            string  `json:"sender_name" validate:"required,min=1,max=100"`
	SenderPhone           string  `json:"sender_phone" validate:"required,min=10,max=20"`
	ReceiverName          string  `json:"receiver_name" validate:"required,min=1,max=100"`
	ReceiverPhone         string  `json:"receiver_phone" validate:"required,min=10,max=20"`
	Description           string  `json:"description,omitempty" validate:"max=1000"`
	Price                 float64 `json:"price" validate:"gt=0"`
	PaymentMode           string  `json:"payment_mode,omitempty" validate:"omitempty,oneof=SENDER_PAYS RECEIVER_PAYS"`
	DestinationBranchSlug string  `json:"destination_branch_slug" validate:"required,min=1"`
	BusSlug               string  `json:"bus_slug,omitempty"`
	Day                   string  `json:"day,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// StatusUpdateRequest asks for a lifecycle transition.
type StatusUpdateRequest struct {
	Status  string `json:"status" validate:"required,oneof=BOOKED IN_TRANSIT ARRIVED DELIVERED"`
	Remarks string `json:"remarks,omitempty" validate:"max=500"`
}

// BranchRef is the minimal branch projection in responses.
type BranchRef struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// BusResponse is the bus projection in responses.
type BusResponse struct {
	Slug          string `json:"slug"`
	BusNumber     string `json:"bus_number"`
	PreferredDays []int  `json:"preferred_days"`
}

// HistoryResponse is one tracking event.
type HistoryResponse struct {
	Status    Status    `json:"status"`
	Location  string    `json:"location"`
	Remarks   *string   `json:"remarks"`
	CreatedAt time.Time `json:"created_at"`
}

// ShipmentResponse is the wire shape of a shipment. Price is a decimal string.
type ShipmentResponse struct {
	Slug              string            `json:"slug"`
	TrackingID        string            `json:"tracking_id"`
	SenderName        string            `json:"sender_name"`
	SenderPhone       string            `json:"sender_phone"`
	ReceiverName      string            `json:"receiver_name"`
	ReceiverPhone     string            `json:"receiver_phone"`
	Description       *string           `json:"description"`
	Price             string            `json:"price"`
	PaymentMode       PaymentMode       `json:"payment_mode"`
	CurrentStatus     Status            `json:"current_status"`
	SourceBranch      BranchRef         `json:"source_branch"`
	DestinationBranch BranchRef         `json:"destination_branch"`
	Bus               *BusResponse      `json:"bus"`
	History           []HistoryResponse `json:"history"`
	CreatedAt         time.Time         `json:"created_at"`
	Day               string            `json:"day"`
}

// ActionResponse describes the next transition available to the caller.
type ActionResponse struct {
	Action string `json:"action"`
	From   Status `json:"from"`
	To     Status `json:"to"`
}

// ActionsResponse pairs a shipment with its next action; ReadOnly is set when there is none.
type ActionsResponse struct {
	Shipment   ShipmentResponse `json:"shipment"`
	NextAction *ActionResponse  `json:"next_action"`
	ReadOnly   bool             `json:"read_only"`
}
