package mail

import (
	"errors"
	"fmt"
)

// ErrMissingRecipient indicates the report has no client email.
var ErrMissingRecipient = errors.New("mail: recipient email is required")

// ProviderError is returned when the mail provider answers with a non-2xx status.
type ProviderError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("mail provider responded with status %d", e.StatusCode)
	}
	if e.Name == "" {
		return fmt.Sprintf("mail provider responded with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mail provider responded with status %d (%s): %s", e.StatusCode, e.Name, e.Message)
}
