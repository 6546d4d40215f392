package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// VisitGateway is the remote data-access contract for visits.
type VisitGateway interface {
	ListVisits(ctx context.Context, token string) ([]Visit, error)
	ListVisitsByTechnician(ctx context.Context, token, technicianID string) ([]Visit, error)
	GetVisit(ctx context.Context, token string, id int64) (Visit, error)
	GetVisitDetail(ctx context.Context, token string, id int64) (VisitDetail, error)
	CreateVisit(ctx context.Context, token string, input VisitInput) (Visit, error)
	UpdateVisit(ctx context.Context, token string, id int64, input VisitInput) error
	UpdateVisitStatus(ctx context.Context, token string, id int64, status VisitStatus) error
	RegisterVisit(ctx context.Context, token string, id int64, input CompletionInput) (int64, error)
	DeleteVisit(ctx context.Context, token string, id int64) error
}

// VisitService covers visit scheduling, role scoped listing and detail reads.
type VisitService struct {
	visits   VisitGateway
	cache    VisitDetailCache
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// NewVisitService wires dependencies for visit operations.
func NewVisitService(visits VisitGateway, cache VisitDetailCache, now func() time.Time, location *time.Location) *VisitService {
	return NewVisitServiceWithLogger(visits, cache, now, location, nil)
}

// NewVisitServiceWithLogger wires dependencies with a specific logger.
func NewVisitServiceWithLogger(visits VisitGateway, cache VisitDetailCache, now func() time.Time, location *time.Location, logger *slog.Logger) *VisitService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &VisitService{
		visits:   visits,
		cache:    cache,
		now:      now,
		location: location,
		logger:   defaultLogger(logger),
	}
}

func (s *VisitService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "VisitService", operation, attrs...)
}

// ListVisits returns the visits visible to the session. Technicians only see
// their own assignments.
func (s *VisitService) ListVisits(ctx context.Context, session Session) ([]Visit, error) {
	if s == nil {
		return nil, fmt.Errorf("VisitService is nil")
	}
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if s.visits == nil {
		return nil, fmt.Errorf("visit gateway not configured")
	}

	var (
		visits []Visit
		err    error
	)
	switch {
	case session.Can(CapManageVisits):
		visits, err = s.visits.ListVisits(ctx, session.RemoteToken)
	case session.Can(CapViewMyVisits):
		visits, err = s.visits.ListVisitsByTechnician(ctx, session.RemoteToken, session.UserID)
	default:
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, mapRemoteError(err)
	}
	return visits, nil
}

// SearchVisits lists the visible visits and applies filter.
func (s *VisitService) SearchVisits(ctx context.Context, session Session, filter VisitFilter) ([]Visit, error) {
	visits, err := s.ListVisits(ctx, session)
	if err != nil {
		return nil, err
	}
	return FilterVisits(visits, filter, s.now(), s.location), nil
}

// GetVisit returns one visit with its client, served from the detail cache when possible.
func (s *VisitService) GetVisit(ctx context.Context, session Session, id int64) (VisitDetail, error) {
	if s == nil {
		return VisitDetail{}, fmt.Errorf("VisitService is nil")
	}
	if err := requireSession(session); err != nil {
		return VisitDetail{}, err
	}
	if !session.Can(CapManageVisits) && !session.Can(CapViewMyVisits) {
		return VisitDetail{}, ErrForbidden
	}
	detail, err := loadVisitDetail(ctx, s.visits, s.cache, session.RemoteToken, id)
	if err != nil {
		return VisitDetail{}, err
	}
	if !session.Can(CapManageVisits) && !session.ownsVisit(detail.Visit) {
		return VisitDetail{}, ErrForbidden
	}
	return detail, nil
}

// View builds the read model of a visit for the session.
func (s *VisitService) View(session Session, visit Visit) VisitView {
	return NewVisitView(visit, session, s.location)
}

// CreateVisit validates and schedules a new visit.
func (s *VisitService) CreateVisit(ctx context.Context, session Session, input VisitInput) (visit Visit, err error) {
	if s == nil {
		return Visit{}, fmt.Errorf("VisitService is nil")
	}
	logger := s.loggerWith(ctx, "CreateVisit", "user_id", session.UserID, "client_id", input.ClientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "visit creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "visit created", "visit_id", visit.ID)
	}()

	if err = requireSession(session); err != nil {
		return Visit{}, err
	}
	if !session.Can(CapManageVisits) {
		return Visit{}, ErrForbidden
	}

	input = normalizeVisitInput(input)
	if input.Status == 0 {
		input.Status = VisitStatusPending
	}
	if input.SupervisorID == "" && session.Role == RoleSupervisor {
		input.SupervisorID = session.UserID
	}

	vErr := &ValidationError{}
	s.validateVisitInput(input, true, vErr)
	if vErr.HasErrors() {
		return Visit{}, vErr
	}
	if s.visits == nil {
		return Visit{}, fmt.Errorf("visit gateway not configured")
	}

	visit, err = s.visits.CreateVisit(ctx, session.RemoteToken, input)
	if err != nil {
		return Visit{}, mapRemoteError(err)
	}
	return visit, nil
}

// UpdateVisit validates and replaces the scheduling fields of a visit. The
// scheduled date is not checked against the current time on edits.
func (s *VisitService) UpdateVisit(ctx context.Context, session Session, id int64, input VisitInput) (err error) {
	if s == nil {
		return fmt.Errorf("VisitService is nil")
	}
	logger := s.loggerWith(ctx, "UpdateVisit", "user_id", session.UserID, "visit_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "visit update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "visit updated")
	}()

	if err = requireSession(session); err != nil {
		return err
	}
	if !session.Can(CapManageVisits) {
		return ErrForbidden
	}

	input = normalizeVisitInput(input)
	vErr := &ValidationError{}
	if id <= 0 {
		vErr.add("id", "El identificador de la visita es inválido")
	}
	s.validateVisitInput(input, false, vErr)
	if vErr.HasErrors() {
		return vErr
	}
	if s.visits == nil {
		return fmt.Errorf("visit gateway not configured")
	}

	if err = s.visits.UpdateVisit(ctx, session.RemoteToken, id, input); err != nil {
		return mapRemoteError(err)
	}
	invalidateVisit(ctx, s.cache, id)
	return nil
}

func (s *VisitService) validateVisitInput(input VisitInput, isNew bool, vErr *ValidationError) {
	if input.ClientID <= 0 {
		vErr.add("clientId", "El cliente es requerido")
	}
	if input.TechnicianID == "" {
		vErr.add("technicianId", "El técnico es requerido")
	}
	if !input.Type.Valid() {
		vErr.add("type", "El tipo de visita es requerido")
	}
	if !input.Status.Valid() {
		vErr.add("status", "El estado de la visita es requerido")
	}
	if input.ScheduledAt == "" {
		vErr.add("scheduledAt", "La fecha programada es requerida")
		return
	}
	scheduled, err := ParseTimestamp(input.ScheduledAt, s.location)
	if err != nil {
		vErr.add("scheduledAt", "La fecha programada no es válida")
		return
	}
	if isNew && scheduled.Before(s.now().In(s.location)) {
		vErr.add("scheduledAt", "La fecha programada no puede ser en el pasado")
	}
}

func normalizeVisitInput(input VisitInput) VisitInput {
	input.TechnicianID = strings.TrimSpace(input.TechnicianID)
	input.SupervisorID = strings.TrimSpace(input.SupervisorID)
	input.ScheduledAt = strings.TrimSpace(input.ScheduledAt)
	input.Description = strings.TrimSpace(input.Description)
	return input
}

func requireSession(session Session) error {
	if strings.TrimSpace(session.RemoteToken) == "" || session.Revoked() {
		return ErrUnauthorized
	}
	return nil
}

func loadVisitDetail(ctx context.Context, visits VisitGateway, cache VisitDetailCache, token string, id int64) (VisitDetail, error) {
	if cache != nil {
		if detail, ok := cache.GetVisitDetail(ctx, id); ok {
			return detail, nil
		}
	}
	if visits == nil {
		return VisitDetail{}, fmt.Errorf("visit gateway not configured")
	}
	detail, err := visits.GetVisitDetail(ctx, token, id)
	if err != nil {
		return VisitDetail{}, mapRemoteError(err)
	}
	if detail.Visit.ID == 0 {
		return VisitDetail{}, ErrNotFound
	}
	if cache != nil {
		cache.StoreVisitDetail(ctx, detail)
	}
	return detail, nil
}

func invalidateVisit(ctx context.Context, cache VisitDetailCache, id int64) {
	if cache != nil {
		cache.InvalidateVisit(ctx, id)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
