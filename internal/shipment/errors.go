package shipment

import (
	"fmt"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

// Domain errors for shipments. Each wraps an httpx sentinel so handlers can
// map them with httpx.RespondError.
var (
	// ErrNotFound indicates the tracking id is unknown.
	ErrNotFound = fmt.Errorf("%w: shipment not found", httpx.ErrNotFound)
	// ErrUnauthorized means the principal may not perform the operation on this shipment.
	ErrUnauthorized = fmt.Errorf("%w: not permitted for this shipment", httpx.ErrForbidden)
	// ErrStaleState means the shipment is no longer in the status the transition starts from.
	ErrStaleState = fmt.Errorf("%w: shipment status changed, re-fetch and retry", httpx.ErrConflict)
	// ErrTransport means the store did not respond.
	ErrTransport = fmt.Errorf("%w: shipment store unavailable", httpx.ErrUnavailable)

	// ErrInvalidStatus means the status value is unknown.
	ErrInvalidStatus = fmt.Errorf("%w: unknown shipment status", httpx.ErrValidation)
	// ErrSameRoute means source and destination branches are equal.
	ErrSameRoute = fmt.Errorf("%w: destination must differ from source branch", httpx.ErrValidation)
	// ErrDestinationNotFound means the destination branch slug is unknown.
	ErrDestinationNotFound = fmt.Errorf("%w: destination branch not found", httpx.ErrNotFound)
	// ErrBusNotFound means the bus slug is unknown.
	ErrBusNotFound = fmt.Errorf("%w: bus not found", httpx.ErrNotFound)
	// ErrTrackingIDExhausted means no free tracking id was found after retries.
	ErrTrackingIDExhausted = fmt.Errorf("%w: could not allocate a tracking id", httpx.ErrConflict)
	// ErrInvalidPrice means the price is not positive.
	ErrInvalidPrice = fmt.Errorf("%w: price must be greater than zero", httpx.ErrValidation)
	// ErrInvalidPayment means the payment mode is unknown.
	ErrInvalidPayment = fmt.Errorf("%w: unknown payment mode", httpx.ErrValidation)
	// ErrDuplicateRequest means the idempotency key was already used.
	ErrDuplicateRequest = fmt.Errorf("%w: booking request already processed", httpx.ErrDuplicate)
)
