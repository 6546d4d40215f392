package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type reportService interface {
	ExportVisits(ctx context.Context, session application.Session, filter application.VisitFilter) (application.Document, error)
	ExportClients(ctx context.Context, session application.Session) (application.Document, error)
	ExportUsers(ctx context.Context, session application.Session) (application.Document, error)
}

type ReportHandler struct {
	service   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

// Visits exports the visit list using the same query parameters as GET /visits.
func (h *ReportHandler) Visits(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	bucket, err := application.ParseDateBucket(query.Get("bucket"))
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Message: localize(msgInvalidBucket, query.Get("bucket"))})
		return
	}
	filter := application.VisitFilter{
		Search:     query.Get("search"),
		Status:     query.Get("status"),
		Technician: query.Get("technician"),
		Bucket:     bucket,
	}
	h.export(w, r, "Visits", func(ctx context.Context, s application.Session) (application.Document, error) {
		return h.service.ExportVisits(ctx, s, filter)
	})
}

func (h *ReportHandler) Clients(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "Clients", func(ctx context.Context, s application.Session) (application.Document, error) {
		return h.service.ExportClients(ctx, s)
	})
}

func (h *ReportHandler) Users(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "Users", func(ctx context.Context, s application.Session) (application.Document, error) {
		return h.service.ExportUsers(ctx, s)
	})
}

func (h *ReportHandler) export(w http.ResponseWriter, r *http.Request, operation string, render func(context.Context, application.Session) (application.Document, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}
	logger := handlerLogger(r.Context(), h.logger, "ReportHandler", operation)

	doc, err := render(r.Context(), session)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to export report", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "report exported", "file", doc.FileName, "bytes", len(doc.Data))
	h.responder.writeDocument(r.Context(), w, doc)
}
