package shipment

import (
	"fmt"
	"strings"

	"github.com/parcelhub/parcelhub/internal/notify"
)

// Messages composes the SMS bodies sent for shipment events.
type Messages struct {
	Signature string
	// TrackingBaseURL, when set, adds a public tracking link.
	TrackingBaseURL string
}

func (m Messages) bookingForSender(s *Shipment) notify.Notification {
	var b strings.Builder
	b.WriteString("Shipment Confirmed!\n")
	fmt.Fprintf(&b, "Tracking ID: %s\n", s.TrackingID)
	fmt.Fprintf(&b, "To: %s\n", s.ReceiverName)
	fmt.Fprintf(&b, "Route: %s -> %s\n", s.Source.Title, s.Destination.Title)
	if s.PaymentMode == SenderPays {
		fmt.Fprintf(&b, "Paid: %s\n", notify.FormatAmount(s.Price))
	}
	m.footer(&b, s)
	return notify.Notification{
		Recipient:  notify.Sender,
		Phone:      s.SenderPhone,
		TrackingID: s.TrackingID,
		Message:    b.String(),
		OfficeID:   s.SourceOfficeID(),
	}
}

func (m Messages) bookingForReceiver(s *Shipment) notify.Notification {
	var b strings.Builder
	b.WriteString("Incoming Shipment!\n")
	fmt.Fprintf(&b, "From: %s\n", s.SenderName)
	fmt.Fprintf(&b, "Tracking ID: %s\n", s.TrackingID)
	fmt.Fprintf(&b, "Route: %s -> %s\n", s.Source.Title, s.Destination.Title)
	if s.PaymentMode == ReceiverPays {
		fmt.Fprintf(&b, "Due on collection: %s\n", notify.FormatAmount(s.Price))
	}
	m.footer(&b, s)
	return notify.Notification{
		Recipient:  notify.Receiver,
		Phone:      s.ReceiverPhone,
		TrackingID: s.TrackingID,
		Message:    b.String(),
		OfficeID:   s.SourceOfficeID(),
	}
}

// forTransition builds the single message a transition emits.
func (m Messages) forTransition(s *Shipment, t Transition, officeID string) notify.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Parcel %s %s.\n", s.TrackingID, t.Phrase)
	fmt.Fprintf(&b, "Route: %s -> %s\n", s.Source.Title, s.Destination.Title)
	m.footer(&b, s)

	n := notify.Notification{
		Recipient:  t.Notify,
		TrackingID: s.TrackingID,
		Message:    b.String(),
		OfficeID:   officeID,
	}
	switch t.Notify {
	case notify.Sender:
		n.Phone = s.SenderPhone
	case notify.Receiver:
		n.Phone = s.ReceiverPhone
	}
	return n
}

func (m Messages) footer(b *strings.Builder, s *Shipment) {
	if m.TrackingBaseURL != "" {
		fmt.Fprintf(b, "Track: %s/track/%s\n", strings.TrimRight(m.TrackingBaseURL, "/"), s.TrackingID)
	}
	if m.Signature != "" {
		fmt.Fprintf(b, "- %s", m.Signature)
	}
}
