package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/skynetapi"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeDocument streams a rendered report as an attachment.
func (r responder) writeDocument(ctx context.Context, w http.ResponseWriter, doc application.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", fmt.Sprint(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to write document", "file", doc.FileName, "error", err)
	}
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   localize(msgSessionExpired),
		})
		return
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   localize(msgInvalidCreds),
		})
		return
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_UNAUTHORIZED",
			Message:   localize(msgUnauthorized),
		})
		return
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   messageOr(application.RemoteMessage(err), localize(msgForbidden)),
		})
		return
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localize(msgNotFound)})
		return
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "VISIT_INVALID_TRANSITION",
			Message:   localize(msgInvalidTransition),
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: localize(msgValidation),
			Errors:  vErr.FieldErrors,
		})
		return
	}

	var apiErr *skynetapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case skynetapi.KindValidation:
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				ErrorCode: "REMOTE_VALIDATION",
				Message:   apiErr.Error(),
				Errors:    flattenFields(apiErr.Fields),
			})
		case skynetapi.KindTransport:
			r.loggerFor(ctx).ErrorContext(ctx, "remote API unavailable", "status", apiErr.HTTPStatus, "error", err)
			r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
				ErrorCode: "REMOTE_UNAVAILABLE",
				Message:   localize(msgRemoteUnavailable),
			})
		default:
			r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
				ErrorCode: "REMOTE_ERROR",
				Message:   apiErr.Error(),
			})
		}
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localize(msgInternal)})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return localize(msgBadRequest)
	case http.StatusUnauthorized:
		return localize(msgUnauthorized)
	case http.StatusForbidden:
		return localize(msgForbidden)
	case http.StatusNotFound:
		return localize(msgNotFound)
	case http.StatusConflict:
		return localize(msgConflict)
	case http.StatusUnprocessableEntity:
		return localize(msgValidation)
	case http.StatusBadGateway:
		return localize(msgRemoteUnavailable)
	default:
		return localize(msgInternal)
	}
}

func messageOr(message, fallback string) string {
	if strings.TrimSpace(message) != "" {
		return message
	}
	return fallback
}

func flattenFields(fields map[string][]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for field, messages := range fields {
		out[field] = strings.Join(messages, " ")
	}
	return out
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
