package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The simulation loop maps these to reject-and-continue or abort-run
// behavior; the inspector maps them to HTTP status codes.
var (
	ErrManagerNotInitialized = errors.New("stream_manager_not_initialized")
	ErrScheduleInPast        = errors.New("schedule_in_past")
	ErrOrderNotFound         = errors.New("order_not_found")
	ErrOrderNotCancelable    = errors.New("order_not_cancelable")
	ErrOwnerNotFound         = errors.New("owner_not_found")
	ErrUnknownMechanism      = errors.New("unknown_mechanism")
)

// ValidationError represents an order-intent validation failure. It is
// recoverable: the intent is rejected and the run continues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
