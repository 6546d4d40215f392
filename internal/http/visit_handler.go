package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type visitService interface {
	SearchVisits(ctx context.Context, session application.Session, filter application.VisitFilter) ([]application.Visit, error)
	GetVisit(ctx context.Context, session application.Session, id int64) (application.VisitDetail, error)
	View(session application.Session, visit application.Visit) application.VisitView
	CreateVisit(ctx context.Context, session application.Session, input application.VisitInput) (application.Visit, error)
	UpdateVisit(ctx context.Context, session application.Session, id int64, input application.VisitInput) error
}

type lifecycleService interface {
	StartVisit(ctx context.Context, session application.Session, visitID int64) (application.Visit, error)
	CancelVisit(ctx context.Context, session application.Session, visitID int64) (application.Visit, error)
	CompleteVisit(ctx context.Context, session application.Session, visitID int64, input application.CompletionInput) (application.CompletionResult, error)
	ResumeCompletion(ctx context.Context, session application.Session, visitID int64) (application.CompletionResult, error)
	ListPendingCompletions(ctx context.Context, session application.Session) ([]application.CompletionMarker, error)
	ChangeStatus(ctx context.Context, session application.Session, visitID int64, to application.VisitStatus, reason string) (application.StatusChange, error)
	DeleteVisit(ctx context.Context, session application.Session, visitID int64) error
}

type VisitHandler struct {
	visits    visitService
	lifecycle lifecycleService
	responder responder
	logger    *slog.Logger
}

func NewVisitHandler(visits visitService, lifecycle lifecycleService, logger *slog.Logger) *VisitHandler {
	base := defaultLogger(logger)
	return &VisitHandler{visits: visits, lifecycle: lifecycle, responder: newResponder(base), logger: base}
}

func (h *VisitHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "VisitHandler", operation, attrs...)
}

func (h *VisitHandler) session(w http.ResponseWriter, r *http.Request) (application.Session, bool) {
	if h == nil || h.visits == nil || h.lifecycle == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.Session{}, false
	}
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return application.Session{}, false
	}
	return session, true
}

// List returns the visits visible to the session, filtered by the search,
// status, technician and bucket query parameters.
func (h *VisitHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

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

	visits, err := h.visits.SearchVisits(r.Context(), session, filter)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list visits", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := make([]visitDTO, 0, len(visits))
	for _, v := range visits {
		resp = append(resp, toVisitDTO(h.visits.View(session, v)))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *VisitHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}

	detail, err := h.visits.GetVisit(r.Context(), session, id)
	if err != nil {
		h.log(r.Context(), "Get", "visit_id", id).ErrorContext(r.Context(), "failed to load visit", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, visitDetailDTO{
		Visit:  toVisitDTO(h.visits.View(session, detail.Visit)),
		Client: toClientDTO(detail.Client),
	})
}

func (h *VisitHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Create")

	var req visitRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	visit, err := h.visits.CreateVisit(r.Context(), session, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create visit", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit created", "visit_id", visit.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toVisitDTO(h.visits.View(session, visit)))
}

func (h *VisitHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Update", "visit_id", id)

	var req visitRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	if err := h.visits.UpdateVisit(r.Context(), session, id, req.toInput()); err != nil {
		logger.ErrorContext(r.Context(), "failed to update visit", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *VisitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Delete", "visit_id", id)

	if err := h.lifecycle.DeleteVisit(r.Context(), session, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to delete visit", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *VisitHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Start", h.lifecycleStart)
}

func (h *VisitHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Cancel", h.lifecycleCancel)
}

func (h *VisitHandler) lifecycleStart(ctx context.Context, session application.Session, id int64) (application.Visit, error) {
	return h.lifecycle.StartVisit(ctx, session, id)
}

func (h *VisitHandler) lifecycleCancel(ctx context.Context, session application.Session, id int64) (application.Visit, error) {
	return h.lifecycle.CancelVisit(ctx, session, id)
}

func (h *VisitHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, application.Session, int64) (application.Visit, error)) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), operation, "visit_id", id)

	visit, err := apply(r.Context(), session, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "visit transition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit transitioned", "status", int(visit.Status))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toVisitDTO(h.visits.View(session, visit)))
}

// Complete registers the execution record and marks the visit completed.
func (h *VisitHandler) Complete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Complete", "visit_id", id)

	var req completionRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	result, err := h.lifecycle.CompleteVisit(r.Context(), session, id, application.CompletionInput{
		Start:        req.Start,
		End:          req.End,
		Observations: req.Observations,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to complete visit", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit completed", "registration_id", result.RegistrationID, "notified", result.Notification.Success)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toCompletionDTO(session, result))
}

// Resume finishes a completion whose status update did not go through.
func (h *VisitHandler) Resume(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Resume", "visit_id", id)

	result, err := h.lifecycle.ResumeCompletion(r.Context(), session, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to resume completion", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "completion resumed", "registration_id", result.RegistrationID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toCompletionDTO(session, result))
}

func (h *VisitHandler) PendingCompletions(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	markers, err := h.lifecycle.ListPendingCompletions(r.Context(), session)
	if err != nil {
		h.log(r.Context(), "PendingCompletions").ErrorContext(r.Context(), "failed to list pending completions", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := make([]completionMarkerDTO, 0, len(markers))
	for _, m := range markers {
		resp = append(resp, completionMarkerDTO{
			VisitID:        m.VisitID,
			RegistrationID: m.RegistrationID,
			Stage:          string(m.Stage),
			LastError:      m.LastError,
			CreatedBy:      m.CreatedBy,
			CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:      m.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// ChangeStatus sets an arbitrary status. Jumps outside the named transitions
// are recorded as overrides.
func (h *VisitHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "ChangeStatus", "visit_id", id)

	var req statusChangeRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	change, err := h.lifecycle.ChangeStatus(r.Context(), session, id, application.VisitStatus(req.Status), req.Reason)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to change visit status", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit status changed", "from", int(change.From), "to", int(change.To), "override", change.Override)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusChangeDTO{
		VisitID:    change.VisitID,
		From:       int(change.From),
		To:         int(change.To),
		StatusName: change.To.Label(),
		Transition: string(change.Transition),
		Override:   change.Override,
		Reason:     change.Reason,
	})
}

func (h *VisitHandler) toCompletionDTO(session application.Session, result application.CompletionResult) completionDTO {
	return completionDTO{
		Visit:          toVisitDTO(h.visits.View(session, result.Visit)),
		RegistrationID: result.RegistrationID,
		Notification: notificationDTO{
			Attempted: result.Notification.Attempted,
			Success:   result.Notification.Success,
			EmailID:   result.Notification.EmailID,
			Error:     result.Notification.Error,
		},
		Warnings: result.Warnings,
	}
}

type visitRequest struct {
	ClientID     int64  `json:"client_id"`
	TechnicianID string `json:"technician_id"`
	SupervisorID string `json:"supervisor_id"`
	Status       int    `json:"status"`
	Type         int    `json:"type"`
	ScheduledAt  string `json:"scheduled_at"`
	Description  string `json:"description"`
}

func (req visitRequest) toInput() application.VisitInput {
	return application.VisitInput{
		ClientID:     req.ClientID,
		TechnicianID: req.TechnicianID,
		SupervisorID: req.SupervisorID,
		Status:       application.VisitStatus(req.Status),
		Type:         application.VisitType(req.Type),
		ScheduledAt:  req.ScheduledAt,
		Description:  req.Description,
	}
}

type completionRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	Observations string `json:"observations"`
}

type statusChangeRequest struct {
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

type visitDTO struct {
	ID              int64            `json:"id"`
	ClientID        int64            `json:"client_id"`
	ClientName      string           `json:"client_name"`
	TechnicianID    string           `json:"technician_id"`
	TechnicianName  string           `json:"technician_name"`
	SupervisorID    string           `json:"supervisor_id,omitempty"`
	SupervisorName  string           `json:"supervisor_name"`
	Status          int              `json:"status"`
	StatusName      string           `json:"status_name"`
	Type            int              `json:"type"`
	TypeName        string           `json:"type_name"`
	ScheduledAt     string           `json:"scheduled_at"`
	ScheduledLabel  string           `json:"scheduled_label"`
	Description     string           `json:"description,omitempty"`
	HasRegistration bool             `json:"has_registration"`
	Registration    *registrationDTO `json:"registration,omitempty"`
	Actions         visitActionsDTO  `json:"actions"`
}

type registrationDTO struct {
	ID           int64  `json:"id"`
	StartedAt    string `json:"started_at"`
	EndedAt      string `json:"ended_at"`
	Observations string `json:"observations,omitempty"`
}

type visitActionsDTO struct {
	CanStart        bool `json:"can_start"`
	CanComplete     bool `json:"can_complete"`
	CanCancel       bool `json:"can_cancel"`
	CanChangeStatus bool `json:"can_change_status"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
}

type visitDetailDTO struct {
	Visit  visitDTO  `json:"visit"`
	Client clientDTO `json:"client"`
}

type completionDTO struct {
	Visit          visitDTO        `json:"visit"`
	RegistrationID int64           `json:"registration_id"`
	Notification   notificationDTO `json:"notification"`
	Warnings       []string        `json:"warnings,omitempty"`
}

type notificationDTO struct {
	Attempted bool   `json:"attempted"`
	Success   bool   `json:"success"`
	EmailID   string `json:"email_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type completionMarkerDTO struct {
	VisitID        int64  `json:"visit_id"`
	RegistrationID int64  `json:"registration_id,omitempty"`
	Stage          string `json:"stage"`
	LastError      string `json:"last_error,omitempty"`
	CreatedBy      string `json:"created_by"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type statusChangeDTO struct {
	VisitID    int64  `json:"visit_id"`
	From       int    `json:"from"`
	To         int    `json:"to"`
	StatusName string `json:"status_name"`
	Transition string `json:"transition"`
	Override   bool   `json:"override"`
	Reason     string `json:"reason,omitempty"`
}

func toVisitDTO(view application.VisitView) visitDTO {
	v := view.Visit
	dto := visitDTO{
		ID:              v.ID,
		ClientID:        v.ClientID,
		ClientName:      view.ClientName,
		TechnicianID:    v.TechnicianID,
		TechnicianName:  view.TechnicianName,
		SupervisorID:    v.SupervisorID,
		SupervisorName:  view.SupervisorName,
		Status:          int(v.Status),
		StatusName:      view.StatusLabel,
		Type:            int(v.Type),
		TypeName:        view.TypeLabel,
		ScheduledAt:     v.ScheduledAt,
		ScheduledLabel:  view.ScheduledLabel,
		Description:     v.Description,
		HasRegistration: view.HasRegistration,
		Actions: visitActionsDTO{
			CanStart:        view.Actions.CanStart,
			CanComplete:     view.Actions.CanComplete,
			CanCancel:       view.Actions.CanCancel,
			CanChangeStatus: view.Actions.CanChangeStatus,
			CanEdit:         view.Actions.CanEdit,
			CanDelete:       view.Actions.CanDelete,
		},
	}
	if v.Registration != nil {
		dto.Registration = &registrationDTO{
			ID:           v.Registration.ID,
			StartedAt:    v.Registration.StartedAt,
			EndedAt:      v.Registration.EndedAt,
			Observations: v.Registration.Observations,
		}
	}
	return dto
}
