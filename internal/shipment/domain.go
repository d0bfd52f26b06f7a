package shipment

import (
	"time"
)

// Status is the lifecycle cursor of a shipment.
type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusArrived   Status = "ARRIVED"
	StatusDelivered Status = "DELIVERED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusBooked, StatusInTransit, StatusArrived, StatusDelivered}

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusBooked, StatusInTransit, StatusArrived, StatusDelivered:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered
}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s Status) Rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// PaymentMode says who settles the price.
type PaymentMode string

const (
	SenderPays   PaymentMode = "SENDER_PAYS"
	ReceiverPays PaymentMode = "RECEIVER_PAYS"
)

// IsValid checks if the payment mode is valid.
func (m PaymentMode) IsValid() bool {
	return m == SenderPays || m == ReceiverPays
}

// Office is the minimal branch projection the engine needs.
type Office struct {
	Slug  string
	Title string
	// OperationalDate is the branch's current business day.
	OperationalDate time.Time
}

// BusRef is the optional bus a shipment travels on.
type BusRef struct {
	Slug          string
	BusNumber     string
	PreferredDays []int
}

// TrackingEvent is one append-only history entry.
type TrackingEvent struct {
	Status    Status
	Location  string
	Note      string
	Timestamp time.Time
}

// Shipment is a parcel booked between two branches.
type Shipment struct {
	Slug          string
	TrackingID    string
	SenderName    string
	SenderPhone   string
	ReceiverName  string
	ReceiverPhone string
	Source        Office
	Destination   Office
	Description   string
	Price         float64
	PaymentMode   PaymentMode
	Bus           *BusRef
	CurrentStatus Status
	History       []TrackingEvent
	Day           time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SourceOfficeID is the booking branch.
func (s *Shipment) SourceOfficeID() string { return s.Source.Slug }

// DestinationOfficeID is the receiving branch.
func (s *Shipment) DestinationOfficeID() string { return s.Destination.Slug }

// Involves reports whether officeID is the source or destination branch.
func (s *Shipment) Involves(officeID string) bool {
	return officeID != "" && (s.Source.Slug == officeID || s.Destination.Slug == officeID)
}

// Clone returns a deep copy so callers cannot mutate shared history.
func (s *Shipment) Clone() *Shipment {
	if s == nil {
		return nil
	}
	cp := *s
	cp.History = append([]TrackingEvent(nil), s.History...)
	if s.Bus != nil {
		bus := *s.Bus
		bus.PreferredDays = append([]int(nil), s.Bus.PreferredDays...)
		cp.Bus = &bus
	}
	return &cp
}
