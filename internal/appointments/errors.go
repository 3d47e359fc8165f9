package appointments

import "errors"

var (
	// ErrNotFound is returned when an appointment does not exist.
	ErrNotFound = errors.New("appointment not found")

	// ErrInvalidTime is returned when appointment_time is not ISO-8601.
	ErrInvalidTime = errors.New("invalid appointment time format")
)

// InvalidTimeMessage is shown to the patient when appointment_time cannot be parsed.
const InvalidTimeMessage = "Invalid appointment time format. Use ISO format (YYYY-MM-DDTHH:MM:SS)."

// ValidationError carries a message that is safe to show to the patient.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
