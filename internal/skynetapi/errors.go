package skynetapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a remote failure.
type Kind string

const (
	// KindValidation marks field level or request shape rejections (400/422 or an errors map).
	KindValidation Kind = "validation"
	// KindTransport marks failures where no usable response arrived or the server failed (5xx).
	KindTransport Kind = "transport"
	// KindUnknown marks every other non-2xx response.
	KindUnknown Kind = "unknown"
)

const genericMessage = "Ha ocurrido un error inesperado. Por favor intenta nuevamente."

// Error is the normalized shape of every failure returned by the SkyNet API client.
type Error struct {
	Kind       Kind
	Messages   []string
	HTTPStatus int
	// Fields holds the raw field map when the server returned one.
	Fields map[string][]string

	cause error
}

// Error joins the user facing messages.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Messages) == 0 {
		return genericMessage
	}
	return joinMessages(e.Messages)
}

// joinMessages concatenates messages with ". " without doubling the period of
// messages that already end in one.
func joinMessages(messages []string) string {
	var b strings.Builder
	for i, msg := range messages {
		b.WriteString(msg)
		if i == len(messages)-1 {
			break
		}
		if strings.HasSuffix(msg, ".") {
			b.WriteString(" ")
		} else {
			b.WriteString(". ")
		}
	}
	return b.String()
}

// Unwrap exposes the transport level cause when there is one.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsWarning reports whether the failure should be shown as an access warning
// rather than an error.
func (e *Error) IsWarning() bool {
	return e != nil && e.HTTPStatus == http.StatusForbidden
}

type errorBody struct {
	Errors  map[string][]string `json:"errors"`
	Message string              `json:"message"`
	Title   string              `json:"title"`
}

// decodeError normalizes a non-2xx response body. The precedence is the field
// error map, then message, then title, then the status table.
func decodeError(status int, body []byte) *Error {
	out := &Error{Kind: classifyStatus(status), HTTPStatus: status}

	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		switch {
		case len(parsed.Errors) > 0:
			out.Kind = KindValidation
			out.Fields = parsed.Errors
			out.Messages = fieldMessages(parsed.Errors)
			return out
		case strings.TrimSpace(parsed.Message) != "":
			out.Messages = []string{translate(strings.TrimSpace(parsed.Message))}
			return out
		case strings.TrimSpace(parsed.Title) != "":
			out.Messages = []string{translate(strings.TrimSpace(parsed.Title))}
			return out
		}
	}

	if msg, ok := statusMessages[status]; ok {
		out.Messages = []string{msg}
		return out
	}
	out.Messages = []string{genericMessage}
	return out
}

func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindTransport
	default:
		return KindUnknown
	}
}

func fieldMessages(fields map[string][]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	messages := make([]string, 0, len(fields))
	for _, name := range names {
		for _, msg := range fields[name] {
			msg = strings.TrimSpace(msg)
			if msg == "" {
				continue
			}
			messages = append(messages, translate(msg))
		}
	}
	if len(messages) == 0 {
		messages = append(messages, "Error de validación")
	}
	return messages
}

// transportError wraps failures that happened before a response was read.
func transportError(err error) *Error {
	message := "Error de conexión con el servidor."
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		message = "Tiempo de espera agotado. Por favor intenta nuevamente."
	}
	return &Error{Kind: KindTransport, Messages: []string{message}, cause: err}
}
