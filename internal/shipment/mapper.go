package shipment

import (
	"fmt"
	"strconv"
	"time"
)

// ToCreateRequest maps the wire payload to the engine request.
func (r CreateShipmentRequest) ToCreateRequest(idempotencyKey string) (CreateRequest, error) {
	out := CreateRequest{
		SenderName:      r.SenderName,
		SenderPhone:     r.SenderPhone,
		ReceiverName:    r.ReceiverName,
		ReceiverPhone:   r.ReceiverPhone,
		Description:     r.Description,
		Price:           r.Price,
		PaymentMode:     PaymentMode(r.PaymentMode),
		DestinationSlug: r.DestinationBranchSlug,
		BusSlug:         r.BusSlug,
		IdempotencyKey:  idempotencyKey,
	}
	if r.Day != "" {
		day, err := time.Parse(dayLayout, r.Day)
		if err != nil {
			return CreateRequest{}, fmt.Errorf("day: %w", err)
		}
		out.Day = day
	}
	return out, nil
}

// ToResponse maps a shipment to its wire shape.
func ToResponse(s *Shipment) ShipmentResponse {
	out := ShipmentResponse{
		Slug:              s.Slug,
		TrackingID:        s.TrackingID,
		SenderName:        s.SenderName,
		SenderPhone:       s.SenderPhone,
		ReceiverName:      s.ReceiverName,
		ReceiverPhone:     s.ReceiverPhone,
		Description:       optional(s.Description),
		Price:             strconv.FormatFloat(s.Price, 'f', 2, 64),
		PaymentMode:       s.PaymentMode,
		CurrentStatus:     s.CurrentStatus,
		SourceBranch:      BranchRef{Slug: s.Source.Slug, Title: s.Source.Title},
		DestinationBranch: BranchRef{Slug: s.Destination.Slug, Title: s.Destination.Title},
		History:           make([]HistoryResponse, 0, len(s.History)),
		CreatedAt:         s.CreatedAt,
		Day:               s.Day.Format(dayLayout),
	}
	if s.Bus != nil {
		days := s.Bus.PreferredDays
		if days == nil {
			days = []int{}
		}
		out.Bus = &BusResponse{Slug: s.Bus.Slug, BusNumber: s.Bus.BusNumber, PreferredDays: days}
	}
	for _, ev := range s.History {
		out.History = append(out.History, HistoryResponse{
			Status:    ev.Status,
			Location:  ev.Location,
			Remarks:   optional(ev.Note),
			CreatedAt: ev.Timestamp,
		})
	}
	return out
}

// ToListResponse maps a page of shipments.
func ToListResponse(items []Shipment) []ShipmentResponse {
	out := make([]ShipmentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToResponse(&items[i]))
	}
	return out
}

// ToActionsResponse maps the shipment and its optional next transition.
func ToActionsResponse(s *Shipment, next *Transition) ActionsResponse {
	out := ActionsResponse{Shipment: ToResponse(s), ReadOnly: next == nil}
	if next != nil {
		out.NextAction = &ActionResponse{Action: next.Action, From: next.From, To: next.To}
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
