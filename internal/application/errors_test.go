package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Fernatzoc/skynet-next/internal/skynetapi"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestMapRemoteError(t *testing.T) {
	t.Parallel()

	cases := map[int]error{401: ErrSessionExpired, 403: ErrForbidden, 404: ErrNotFound}
	for status, want := range cases {
		remote := &skynetapi.Error{Kind: skynetapi.KindUnknown, HTTPStatus: status, Messages: []string{"fallo remoto"}}
		got := mapRemoteError(fmt.Errorf("call: %w", remote))
		if !errors.Is(got, want) {
			t.Fatalf("expected %v for status %d, got %v", want, status, got)
		}
		if RemoteMessage(got) != "fallo remoto" {
			t.Fatalf("expected remote message to survive mapping, got %q", RemoteMessage(got))
		}
	}

	validation := &skynetapi.Error{Kind: skynetapi.KindValidation, HTTPStatus: 400, Messages: []string{"Campo requerido"}}
	if got := mapRemoteError(validation); got != validation {
		t.Fatalf("expected validation failures to pass through unchanged")
	}
	if mapRemoteError(nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
	if RemoteMessage(errors.New("local")) != "" {
		t.Fatalf("expected no remote message for local errors")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                   nil,
		"unauthorized":       ErrUnauthorized,
		"forbidden":          errors.Join(ErrForbidden, errors.New("x")),
		"session_expired":    ErrSessionExpired,
		"invalid_transition": fmt.Errorf("start: %w", ErrInvalidTransition),
		"validation":         &ValidationError{FieldErrors: map[string]string{"a": "b"}},
		"remote_transport":   &skynetapi.Error{Kind: skynetapi.KindTransport},
		"unexpected":         errors.New("boom"),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}
