package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type notificationService interface {
	SendVisitReport(ctx context.Context, session application.Session, email application.VisitReportEmail) (application.NotificationResult, error)
}

type NotificationHandler struct {
	service   notificationService
	responder responder
	logger    *slog.Logger
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	base := defaultLogger(logger)
	return &NotificationHandler{service: service, responder: newResponder(base), logger: base}
}

// SendVisitReport emails an already composed visit report.
func (h *NotificationHandler) SendVisitReport(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}
	logger := handlerLogger(r.Context(), h.logger, "NotificationHandler", "SendVisitReport")

	var email application.VisitReportEmail
	if !decodeJSON(w, r, h.responder, logger, &email) {
		return
	}
	logger = logger.With("visit_id", email.VisitaID)

	result, err := h.service.SendVisitReport(r.Context(), session, email)
	if err != nil {
		logger.ErrorContext(r.Context(), "visit report not sent", "error", err, "error_kind", application.ErrorKind(err))
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, sendReportResponse{Error: vErr.FieldErrors["clienteEmail"]})
			return
		}
		if result.Attempted {
			h.responder.writeJSON(r.Context(), w, http.StatusInternalServerError, sendReportResponse{
				Error:   localize(msgEmailFailed),
				Details: result.Error,
			})
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit report sent", "email_id", result.EmailID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sendReportResponse{
		Success: true,
		Message: localize(msgEmailSent),
		EmailID: result.EmailID,
	})
}

type sendReportResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	EmailID string `json:"emailId,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}
