package shipment

import (
	"github.com/parcelhub/parcelhub/internal/notify"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// Actor names the route end whose admin may fire a transition.
type Actor string

const (
	ActorSourceAdmin      Actor = "SOURCE_ADMIN"
	ActorDestinationAdmin Actor = "DESTINATION_ADMIN"
)

// Transition is one row of the lifecycle table.
type Transition struct {
	From   Status
	To     Status
	Action string
	Actor  Actor
	// Notify is the single party told about the transition.
	Notify notify.Recipient
	// Phrase completes "Parcel <id> ..." in the outbound message.
	Phrase string
}

// transitions is the only place lifecycle rules live. Order is lifecycle order.
var transitions = [...]Transition{
	{
		From: StatusBooked, To: StatusInTransit, Action: "dispatch",
		Actor: ActorSourceAdmin, Notify: notify.Receiver, Phrase: "is now in transit",
	},
	{
		From: StatusInTransit, To: StatusArrived, Action: "arrive",
		Actor: ActorDestinationAdmin, Notify: notify.Receiver, Phrase: "has arrived at destination",
	},
	{
		From: StatusArrived, To: StatusDelivered, Action: "deliver",
		Actor: ActorDestinationAdmin, Notify: notify.Sender, Phrase: "was delivered",
	},
}

// Transitions returns a copy of the lifecycle table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions[:])
	return out
}

// TransitionTo returns the row whose target is to.
func TransitionTo(to Status) (Transition, bool) {
	for _, t := range transitions {
		if t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// TransitionFrom returns the row leaving from.
func TransitionFrom(from Status) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from {
			return t, true
		}
	}
	return Transition{}, false
}

// ActorOffice returns the branch slug whose admin may fire t on s.
func (t Transition) ActorOffice(s *Shipment) string {
	switch t.Actor {
	case ActorSourceAdmin:
		return s.SourceOfficeID()
	case ActorDestinationAdmin:
		return s.DestinationOfficeID()
	default:
		return ""
	}
}

// CanTransition reports whether p may move s to target right now: p is an
// office admin, a row leads from the current status to target, and p
// administers the branch that row names.
func CanTransition(s *Shipment, p shared.Principal, target Status) bool {
	return Authorize(s, p, target) == nil
}

// Authorize explains why CanTransition is false. Anyone who is not the admin
// of the branch a row names for target gets ErrUnauthorized, whatever the
// shipment's status. Only that admin can observe ErrStaleState, which is what
// a replayed or raced request sees once the row no longer starts at the
// current status.
func Authorize(s *Shipment, p shared.Principal, target Status) error {
	if !target.IsValid() {
		return ErrInvalidStatus
	}
	if s == nil {
		return ErrNotFound
	}
	if !p.IsOfficeAdmin() {
		return ErrUnauthorized
	}
	row, ok := TransitionTo(target)
	if !ok {
		return ErrUnauthorized
	}
	if !p.Administers(row.ActorOffice(s)) {
		return ErrUnauthorized
	}
	if row.From != s.CurrentStatus {
		return ErrStaleState
	}
	return nil
}

// NextAction returns the single transition p may fire on s, if any. A false
// result means the shipment is read only for p.
func NextAction(s *Shipment, p shared.Principal) (Transition, bool) {
	if s == nil {
		return Transition{}, false
	}
	row, ok := TransitionFrom(s.CurrentStatus)
	if !ok {
		return Transition{}, false
	}
	if !CanTransition(s, p, row.To) {
		return Transition{}, false
	}
	return row, true
}

// CanView reports whether p may read s through the authenticated read path.
func CanView(s *Shipment, p shared.Principal) bool {
	switch {
	case p.IsSuperAdmin():
		return true
	case p.IsOfficeAdmin():
		return s.Involves(p.OfficeID)
	default:
		return false
	}
}
