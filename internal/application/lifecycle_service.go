package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WarningEmailNotSent is attached to a completion whose notification failed.
const WarningEmailNotSent = "La visita fue completada pero no se pudo enviar el email al cliente"

// CompletionMarkerRepository persists the progress of two-phase completions.
type CompletionMarkerRepository interface {
	SaveCompletionMarker(ctx context.Context, marker CompletionMarker) (CompletionMarker, error)
	GetCompletionMarker(ctx context.Context, visitID int64) (CompletionMarker, error)
	ListPendingCompletionMarkers(ctx context.Context) ([]CompletionMarker, error)
}

// StatusChangeRecorder stores the audit trail of status changes.
type StatusChangeRecorder interface {
	RecordStatusChange(ctx context.Context, change StatusChange) error
}

// VisitNotifier sends the completion notification for a visit.
type VisitNotifier interface {
	NotifyVisitCompleted(ctx context.Context, session Session, visitID int64) (NotificationResult, error)
}

// LifecycleService executes visit status transitions and the completion workflow.
type LifecycleService struct {
	visits      VisitGateway
	markers     CompletionMarkerRepository
	audit       StatusChangeRecorder
	notifier    VisitNotifier
	cache       VisitDetailCache
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
	tracer      trace.Tracer
}

// LifecycleDependencies groups the collaborators of LifecycleService.
type LifecycleDependencies struct {
	Visits      VisitGateway
	Markers     CompletionMarkerRepository
	Audit       StatusChangeRecorder
	Notifier    VisitNotifier
	Cache       VisitDetailCache
	IDGenerator func() string
	Now         func() time.Time
	Location    *time.Location
	Logger      *slog.Logger
}

// NewLifecycleService wires dependencies for lifecycle operations.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &LifecycleService{
		visits:      deps.Visits,
		markers:     deps.Markers,
		audit:       deps.Audit,
		notifier:    deps.Notifier,
		cache:       deps.Cache,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		location:    deps.Location,
		logger:      defaultLogger(deps.Logger),
		tracer:      otel.Tracer("github.com/Fernatzoc/skynet-next/internal/application"),
	}
}

func (s *LifecycleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LifecycleService", operation, attrs...)
}

func (s *LifecycleService) startSpan(ctx context.Context, name string, session Session, visitID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "lifecycle."+name, trace.WithAttributes(
		attribute.Int64("visit.id", visitID),
		attribute.String("session.role", string(session.Role)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
	}
	span.End()
}

// StartVisit moves a pending visit to in progress.
func (s *LifecycleService) StartVisit(ctx context.Context, session Session, visitID int64) (visit Visit, err error) {
	if s == nil {
		return Visit{}, fmt.Errorf("LifecycleService is nil")
	}
	ctx, span := s.startSpan(ctx, "StartVisit", session, visitID)
	logger := s.loggerWith(ctx, "StartVisit", "user_id", session.UserID, "visit_id", visitID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "visit start failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "visit started", "transition", TransitionStart)
	}()

	visit, err = s.loadOperableVisit(ctx, session, visitID)
	if err != nil {
		return Visit{}, err
	}

	var next VisitStatus
	if next, err = requireTransition(TransitionStart, visit.Status); err != nil {
		return Visit{}, err
	}
	if err = s.visits.UpdateVisitStatus(ctx, session.RemoteToken, visitID, next); err != nil {
		return Visit{}, mapRemoteError(err)
	}
	invalidateVisit(ctx, s.cache, visitID)

	return withStatus(visit, next), nil
}

// CancelVisit moves a pending or in progress visit to cancelled.
func (s *LifecycleService) CancelVisit(ctx context.Context, session Session, visitID int64) (visit Visit, err error) {
	if s == nil {
		return Visit{}, fmt.Errorf("LifecycleService is nil")
	}
	ctx, span := s.startSpan(ctx, "CancelVisit", session, visitID)
	logger := s.loggerWith(ctx, "CancelVisit", "user_id", session.UserID, "visit_id", visitID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "visit cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "visit cancelled", "transition", TransitionCancel)
	}()

	if err = requireSession(session); err != nil {
		return Visit{}, err
	}
	if !session.Can(CapManageVisits) {
		return Visit{}, ErrForbidden
	}
	if s.visits == nil {
		return Visit{}, fmt.Errorf("visit gateway not configured")
	}

	if visit, err = s.fetchVisit(ctx, session, visitID); err != nil {
		return Visit{}, err
	}
	var next VisitStatus
	if next, err = requireTransition(TransitionCancel, visit.Status); err != nil {
		return Visit{}, err
	}
	if err = s.visits.UpdateVisitStatus(ctx, session.RemoteToken, visitID, next); err != nil {
		return Visit{}, mapRemoteError(err)
	}
	invalidateVisit(ctx, s.cache, visitID)
	s.recordChange(ctx, logger, session, visitID, visit.Status, next, "")

	return withStatus(visit, next), nil
}

// CompleteVisit registers the execution record, when the visit has none, and
// then marks it completed. Progress is persisted as a completion marker so a
// failure between the two remote calls can be resumed. The notification runs
// last and never fails the completion.
func (s *LifecycleService) CompleteVisit(ctx context.Context, session Session, visitID int64, input CompletionInput) (result CompletionResult, err error) {
	if s == nil {
		return CompletionResult{}, fmt.Errorf("LifecycleService is nil")
	}
	ctx, span := s.startSpan(ctx, "CompleteVisit", session, visitID)
	logger := s.loggerWith(ctx, "CompleteVisit", "user_id", session.UserID, "visit_id", visitID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "visit completion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "visit completed",
			"registration_id", result.RegistrationID,
			"notification_sent", result.Notification.Success,
		)
	}()

	input = CompletionInput{
		Start:        strings.TrimSpace(input.Start),
		End:          strings.TrimSpace(input.End),
		Observations: strings.TrimSpace(input.Observations),
	}
	if vErr := s.validateCompletion(input); vErr.HasErrors() {
		return CompletionResult{}, vErr
	}

	visit, err := s.loadOperableVisit(ctx, session, visitID)
	if err != nil {
		return CompletionResult{}, err
	}
	if _, err = requireTransition(TransitionComplete, visit.Status); err != nil {
		return CompletionResult{}, err
	}

	marker, err := s.openMarker(ctx, session, visit, input)
	if err != nil {
		return CompletionResult{}, err
	}

	if marker.RegistrationID == 0 {
		var registrationID int64
		registrationID, err = s.visits.RegisterVisit(ctx, session.RemoteToken, visitID, input)
		if err != nil {
			err = mapRemoteError(err)
			s.failMarker(ctx, logger, marker, err)
			return CompletionResult{}, err
		}
		marker.RegistrationID = registrationID
		marker.Stage = CompletionStageRegistered
		marker.LastError = ""
		if marker, err = s.saveMarker(ctx, marker); err != nil {
			return CompletionResult{}, err
		}
		visit.Registration = &Registration{
			ID:           registrationID,
			StartedAt:    input.Start,
			EndedAt:      input.End,
			Observations: input.Observations,
		}
	}

	return s.finishCompletion(ctx, logger, session, visit, marker)
}

// ResumeCompletion finishes a completion left behind by a failed status update
// or an interrupted registration.
func (s *LifecycleService) ResumeCompletion(ctx context.Context, session Session, visitID int64) (result CompletionResult, err error) {
	if s == nil {
		return CompletionResult{}, fmt.Errorf("LifecycleService is nil")
	}
	ctx, span := s.startSpan(ctx, "ResumeCompletion", session, visitID)
	logger := s.loggerWith(ctx, "ResumeCompletion", "user_id", session.UserID, "visit_id", visitID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "completion resume failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "completion resumed", "registration_id", result.RegistrationID)
	}()

	if s.markers == nil {
		return CompletionResult{}, fmt.Errorf("completion marker repository not configured")
	}

	visit, err := s.loadOperableVisit(ctx, session, visitID)
	if err != nil {
		return CompletionResult{}, err
	}

	var marker CompletionMarker
	marker, err = s.markers.GetCompletionMarker(ctx, visitID)
	if err != nil {
		return CompletionResult{}, err
	}
	if !marker.Pending() {
		return CompletionResult{}, ErrInvalidTransition
	}

	if marker.RegistrationID == 0 {
		if visit.HasRegistration() {
			marker.RegistrationID = visit.Registration.ID
		} else {
			input := CompletionInput{Start: marker.Start, End: marker.End, Observations: marker.Observations}
			var registrationID int64
			registrationID, err = s.visits.RegisterVisit(ctx, session.RemoteToken, visitID, input)
			if err != nil {
				err = mapRemoteError(err)
				s.failMarker(ctx, logger, marker, err)
				return CompletionResult{}, err
			}
			marker.RegistrationID = registrationID
			visit.Registration = &Registration{ID: registrationID, StartedAt: input.Start, EndedAt: input.End, Observations: input.Observations}
		}
		marker.Stage = CompletionStageRegistered
		marker.LastError = ""
		if marker, err = s.saveMarker(ctx, marker); err != nil {
			return CompletionResult{}, err
		}
	}

	if visit.Status != VisitStatusCompleted {
		if _, err = requireTransition(TransitionComplete, visit.Status); err != nil {
			return CompletionResult{}, err
		}
	}
	return s.finishCompletion(ctx, logger, session, visit, marker)
}

// ListPendingCompletions returns the completions that have not reached the
// completed stage. Technicians only see the ones they started.
func (s *LifecycleService) ListPendingCompletions(ctx context.Context, session Session) ([]CompletionMarker, error) {
	if s == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if !session.Can(CapManageVisits) && !session.Can(CapViewMyVisits) {
		return nil, ErrForbidden
	}
	if s.markers == nil {
		return nil, nil
	}
	markers, err := s.markers.ListPendingCompletionMarkers(ctx)
	if err != nil {
		return nil, err
	}
	if session.Can(CapManageVisits) {
		return markers, nil
	}
	out := make([]CompletionMarker, 0, len(markers))
	for _, m := range markers {
		if m.CreatedBy == session.UserID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ChangeStatus sets any status on a visit. It is the administrative escape
// hatch next to the named transitions: every change is audited, and a jump
// that is not a named transition is logged as an override.
func (s *LifecycleService) ChangeStatus(ctx context.Context, session Session, visitID int64, to VisitStatus, reason string) (change StatusChange, err error) {
	if s == nil {
		return StatusChange{}, fmt.Errorf("LifecycleService is nil")
	}
	ctx, span := s.startSpan(ctx, "ChangeStatus", session, visitID)
	span.SetAttributes(attribute.Int("visit.status.to", int(to)))
	logger := s.loggerWith(ctx, "ChangeStatus", "user_id", session.UserID, "visit_id", visitID, "to", int(to))
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "status change failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = requireSession(session); err != nil {
		return StatusChange{}, err
	}
	if !session.Can(CapManageVisits) {
		return StatusChange{}, ErrForbidden
	}
	if !to.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "El estado seleccionado no es válido")
		return StatusChange{}, vErr
	}
	if s.visits == nil {
		return StatusChange{}, fmt.Errorf("visit gateway not configured")
	}

	var visit Visit
	if visit, err = s.fetchVisit(ctx, session, visitID); err != nil {
		return StatusChange{}, err
	}

	from := visit.Status
	if from == to {
		logger.InfoContext(ctx, "status unchanged", "from", int(from))
		return StatusChange{VisitID: visitID, From: from, To: to, ActorID: session.UserID, CreatedAt: s.now()}, nil
	}

	if err = s.visits.UpdateVisitStatus(ctx, session.RemoteToken, visitID, to); err != nil {
		return StatusChange{}, mapRemoteError(err)
	}
	invalidateVisit(ctx, s.cache, visitID)

	change = s.recordChange(ctx, logger, session, visitID, from, to, strings.TrimSpace(reason))
	return change, nil
}

// DeleteVisit permanently removes a visit.
func (s *LifecycleService) DeleteVisit(ctx context.Context, session Session, visitID int64) (err error) {
	if s == nil {
		return fmt.Errorf("LifecycleService is nil")
	}
	ctx, span := s.startSpan(ctx, "DeleteVisit", session, visitID)
	logger := s.loggerWith(ctx, "DeleteVisit", "user_id", session.UserID, "visit_id", visitID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "visit deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.WarnContext(ctx, "visit deleted")
	}()

	if err = requireSession(session); err != nil {
		return err
	}
	if !session.Can(CapDeleteVisits) {
		return ErrForbidden
	}
	if s.visits == nil {
		return fmt.Errorf("visit gateway not configured")
	}
	if err = s.visits.DeleteVisit(ctx, session.RemoteToken, visitID); err != nil {
		return mapRemoteError(err)
	}
	invalidateVisit(ctx, s.cache, visitID)
	return nil
}

func (s *LifecycleService) finishCompletion(ctx context.Context, logger *slog.Logger, session Session, visit Visit, marker CompletionMarker) (CompletionResult, error) {
	if visit.Status != VisitStatusCompleted {
		if err := s.visits.UpdateVisitStatus(ctx, session.RemoteToken, visit.ID, VisitStatusCompleted); err != nil {
			err = mapRemoteError(err)
			s.failMarker(ctx, logger, marker, err)
			return CompletionResult{}, err
		}
		invalidateVisit(ctx, s.cache, visit.ID)
		s.recordChange(ctx, logger, session, visit.ID, visit.Status, VisitStatusCompleted, "")
	}

	marker.Stage = CompletionStageCompleted
	marker.LastError = ""
	if _, err := s.saveMarker(ctx, marker); err != nil {
		// The remote state is already final; the stale marker only shows up in
		// the pending list and resumes as a no-op.
		logger.ErrorContext(ctx, "failed to close completion marker", "error", err)
	}

	result := CompletionResult{
		Visit:          withStatus(visit, VisitStatusCompleted),
		RegistrationID: marker.RegistrationID,
	}
	result.Notification = s.notify(ctx, logger, session, visit.ID)
	if result.Notification.Attempted && !result.Notification.Success {
		result.Warnings = append(result.Warnings, WarningEmailNotSent)
	}
	return result, nil
}

func (s *LifecycleService) notify(ctx context.Context, logger *slog.Logger, session Session, visitID int64) NotificationResult {
	if s.notifier == nil {
		return NotificationResult{}
	}
	res, err := s.notifier.NotifyVisitCompleted(ctx, session, visitID)
	res.Attempted = true
	if err != nil {
		res.Success = false
		if res.Error == "" {
			res.Error = err.Error()
		}
		logger.WarnContext(ctx, "completion notification failed", "error", err)
	}
	return res
}

// openMarker returns the marker for visit, creating it at the
// pending_registration stage. A marker that already carries a registration id
// is reused so the registration is not repeated.
func (s *LifecycleService) openMarker(ctx context.Context, session Session, visit Visit, input CompletionInput) (CompletionMarker, error) {
	now := s.now()
	marker := CompletionMarker{
		ID:           s.idGenerator(),
		VisitID:      visit.ID,
		Stage:        CompletionStagePendingRegistration,
		Start:        input.Start,
		End:          input.End,
		Observations: input.Observations,
		CreatedBy:    session.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if s.markers != nil {
		existing, err := s.markers.GetCompletionMarker(ctx, visit.ID)
		switch {
		case err == nil && existing.Pending():
			marker.ID = existing.ID
			marker.CreatedAt = existing.CreatedAt
			marker.RegistrationID = existing.RegistrationID
		case err == nil:
			marker.ID = existing.ID
		case !isNotFound(err):
			return CompletionMarker{}, err
		}
	}

	if visit.HasRegistration() {
		marker.RegistrationID = visit.Registration.ID
	}
	if marker.RegistrationID != 0 {
		marker.Stage = CompletionStageRegistered
	}
	return s.saveMarker(ctx, marker)
}

func (s *LifecycleService) saveMarker(ctx context.Context, marker CompletionMarker) (CompletionMarker, error) {
	marker.UpdatedAt = s.now()
	if s.markers == nil {
		return marker, nil
	}
	return s.markers.SaveCompletionMarker(ctx, marker)
}

func (s *LifecycleService) failMarker(ctx context.Context, logger *slog.Logger, marker CompletionMarker, cause error) {
	marker.LastError = cause.Error()
	if _, err := s.saveMarker(ctx, marker); err != nil {
		logger.ErrorContext(ctx, "failed to record completion failure", "error", err)
	}
}

func (s *LifecycleService) recordChange(ctx context.Context, logger *slog.Logger, session Session, visitID int64, from, to VisitStatus, reason string) StatusChange {
	name, named := TransitionFor(from, to)
	if !named {
		name = TransitionOverride
	}
	change := StatusChange{
		ID:         s.idGenerator(),
		VisitID:    visitID,
		From:       from,
		To:         to,
		Transition: name,
		Override:   !named,
		Reason:     reason,
		ActorID:    session.UserID,
		ActorEmail: session.Email,
		CreatedAt:  s.now(),
	}

	attrs := []any{"from", int(from), "to", int(to), "transition", name, "override", change.Override}
	if change.Override {
		logger.WarnContext(ctx, "status override applied", append(attrs, "reason", reason)...)
	} else {
		logger.InfoContext(ctx, "status changed", attrs...)
	}

	if s.audit != nil {
		if err := s.audit.RecordStatusChange(ctx, change); err != nil {
			logger.ErrorContext(ctx, "failed to record status change", "error", err)
		}
	}
	return change
}

// loadOperableVisit fetches the visit and checks that the session may start or
// complete it: managers act on any visit, technicians on their own.
func (s *LifecycleService) loadOperableVisit(ctx context.Context, session Session, visitID int64) (Visit, error) {
	if err := requireSession(session); err != nil {
		return Visit{}, err
	}
	if !session.Can(CapManageVisits) && !session.Can(CapViewMyVisits) {
		return Visit{}, ErrForbidden
	}
	if s.visits == nil {
		return Visit{}, fmt.Errorf("visit gateway not configured")
	}
	visit, err := s.fetchVisit(ctx, session, visitID)
	if err != nil {
		return Visit{}, err
	}
	if !session.Can(CapManageVisits) && !session.ownsVisit(visit) {
		return Visit{}, ErrForbidden
	}
	return visit, nil
}

func (s *LifecycleService) fetchVisit(ctx context.Context, session Session, visitID int64) (Visit, error) {
	visit, err := s.visits.GetVisit(ctx, session.RemoteToken, visitID)
	if err != nil {
		return Visit{}, mapRemoteError(err)
	}
	if visit.ID == 0 {
		return Visit{}, ErrNotFound
	}
	return visit, nil
}

func (s *LifecycleService) validateCompletion(input CompletionInput) *ValidationError {
	vErr := &ValidationError{}
	var start, end time.Time
	var err error

	if input.Start == "" {
		vErr.add("start", "La fecha y hora de inicio es requerida")
	} else if start, err = ParseTimestamp(input.Start, s.location); err != nil {
		vErr.add("start", "La fecha y hora de inicio no es válida")
	}
	if input.End == "" {
		vErr.add("end", "La fecha y hora de fin es requerida")
	} else if end, err = ParseTimestamp(input.End, s.location); err != nil {
		vErr.add("end", "La fecha y hora de fin no es válida")
	}
	if vErr.HasErrors() {
		return vErr
	}
	if !end.After(start) {
		vErr.add("end", "La fecha de fin debe ser posterior a la fecha de inicio")
	}
	return vErr
}

func withStatus(visit Visit, status VisitStatus) Visit {
	visit.Status = status
	visit.StatusName = status.Label()
	return visit
}
