package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/Fernatzoc/skynet-next/internal/skynetapi"
)

var (
	// ErrUnauthorized is returned when no valid session accompanies the call.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the session role lacks the capability for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidCredentials is returned when the remote API rejects a login.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when the session or its remote token is no longer valid.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrInvalidTransition is returned when a named lifecycle transition does not apply to the visit status.
	ErrInvalidTransition = errors.New("application: invalid status transition")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Fields returns the offending field names in stable order.
func (v *ValidationError) Fields() []string {
	if v == nil || len(v.FieldErrors) == 0 {
		return nil
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// mapRemoteError folds status-bearing remote failures into the application
// sentinels while keeping the normalized remote error reachable through errors.As.
func mapRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *skynetapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.HTTPStatus {
	case 401:
		return errors.Join(ErrSessionExpired, err)
	case 403:
		return errors.Join(ErrForbidden, err)
	case 404:
		return errors.Join(ErrNotFound, err)
	}
	return err
}

// RemoteMessage returns the user facing message carried by a normalized remote
// error, or an empty string when err did not come from the remote API.
func RemoteMessage(err error) string {
	var apiErr *skynetapi.Error
	if errors.As(err, &apiErr) {
		return strings.TrimSpace(apiErr.Error())
	}
	return ""
}
