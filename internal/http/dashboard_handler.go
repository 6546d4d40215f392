package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type dashboardService interface {
	Stats(ctx context.Context, session application.Session) (application.DashboardStats, error)
}

type DashboardHandler struct {
	service   dashboardService
	responder responder
	logger    *slog.Logger
}

func NewDashboardHandler(service dashboardService, logger *slog.Logger) *DashboardHandler {
	base := defaultLogger(logger)
	return &DashboardHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(r.Context(), session)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "DashboardHandler", "Stats").ErrorContext(r.Context(), "failed to compute stats", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, dashboardStatsDTO{
		TotalVisits:     stats.TotalVisits,
		PendingVisits:   stats.PendingVisits,
		CompletedVisits: stats.CompletedVisits,
		CancelledVisits: stats.CancelledVisits,
		TodayVisits:     stats.TodayVisits,
		ActiveClients:   stats.ActiveClients,
		ActiveUsers:     stats.ActiveUsers,
		Technicians:     stats.Technicians,
	})
}

type dashboardStatsDTO struct {
	TotalVisits     int `json:"total_visits"`
	PendingVisits   int `json:"pending_visits"`
	CompletedVisits int `json:"completed_visits"`
	CancelledVisits int `json:"cancelled_visits"`
	TodayVisits     int `json:"today_visits"`
	ActiveClients   int `json:"active_clients"`
	ActiveUsers     int `json:"active_users"`
	Technicians     int `json:"technicians"`
}
