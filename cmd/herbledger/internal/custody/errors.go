package custody

import "errors"

// Ledger error taxonomy. Every rejection is a local, deterministic outcome of
// a single call and leaves stored state untouched. Callers match with
// errors.Is; infrastructure failures never wrap these values.
var (
	// ErrUnauthorized is returned when the caller lacks the required role
	// bit, or is not the administrator for role mutations.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBatchNotFound is returned when a batch id was never allocated.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrStageOutOfOrder is returned when the predecessor stage is not yet recorded.
	ErrStageOutOfOrder = errors.New("stage out of order")

	// ErrAlreadyRecorded is returned when the target stage slot is already set.
	ErrAlreadyRecorded = errors.New("stage already recorded")

	// ErrInvalidInput is returned for structurally invalid arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// Code returns a stable machine-readable code for a taxonomy error, or
// "internal" for anything else.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrBatchNotFound):
		return "batch_not_found"
	case errors.Is(err, ErrStageOutOfOrder):
		return "stage_out_of_order"
	case errors.Is(err, ErrAlreadyRecorded):
		return "already_recorded"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
