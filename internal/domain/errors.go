package domain

import "errors"

var (
	// ErrNotFound covers both absent notes and notes owned by someone else.
	ErrNotFound = errors.New("note not found")

	// ErrUpstreamModel marks failures of the generative model or of its output.
	ErrUpstreamModel = errors.New("upstream model error")

	// ErrStore marks persistence failures.
	ErrStore = errors.New("store error")
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
