package main

import (
	"context"
	"errors"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/persistence"
)

// storeError folds persistence sentinels into the application ones.
func storeError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return errors.Join(application.ErrNotFound, err)
	}
	return err
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, storeError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, storeError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, storeError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, storeError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type completionMarkerAdapter struct {
	repo persistence.CompletionMarkerRepository
}

func newCompletionMarkerAdapter(repo persistence.CompletionMarkerRepository) *completionMarkerAdapter {
	return &completionMarkerAdapter{repo: repo}
}

func (a *completionMarkerAdapter) SaveCompletionMarker(ctx context.Context, marker application.CompletionMarker) (application.CompletionMarker, error) {
	stored, err := a.repo.SaveCompletionMarker(ctx, toPersistenceMarker(marker))
	if err != nil {
		return application.CompletionMarker{}, storeError(err)
	}
	return toApplicationMarker(stored), nil
}

func (a *completionMarkerAdapter) GetCompletionMarker(ctx context.Context, visitID int64) (application.CompletionMarker, error) {
	stored, err := a.repo.GetCompletionMarker(ctx, visitID)
	if err != nil {
		return application.CompletionMarker{}, storeError(err)
	}
	return toApplicationMarker(stored), nil
}

func (a *completionMarkerAdapter) ListPendingCompletionMarkers(ctx context.Context) ([]application.CompletionMarker, error) {
	stored, err := a.repo.ListCompletionMarkers(ctx, string(application.CompletionStageCompleted))
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]application.CompletionMarker, 0, len(stored))
	for _, m := range stored {
		out = append(out, toApplicationMarker(m))
	}
	return out, nil
}

type statusChangeAdapter struct {
	repo persistence.StatusChangeRepository
}

func newStatusChangeAdapter(repo persistence.StatusChangeRepository) *statusChangeAdapter {
	return &statusChangeAdapter{repo: repo}
}

func (a *statusChangeAdapter) RecordStatusChange(ctx context.Context, change application.StatusChange) error {
	return storeError(a.repo.RecordStatusChange(ctx, persistence.StatusChange{
		ID:         change.ID,
		VisitID:    change.VisitID,
		FromStatus: int(change.From),
		ToStatus:   int(change.To),
		Transition: string(change.Transition),
		Override:   change.Override,
		Reason:     change.Reason,
		ActorID:    change.ActorID,
		ActorEmail: change.ActorEmail,
		CreatedAt:  change.CreatedAt,
	}))
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Email:       model.Email,
		Roles:       append([]string(nil), model.Roles...),
		Role:        application.PrimaryRole(model.Roles),
		RemoteToken: model.RemoteToken,
		Token:       model.Token,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Email:       session.Email,
		Roles:       append([]string(nil), session.Roles...),
		RemoteToken: session.RemoteToken,
		Token:       session.Token,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func toApplicationMarker(model persistence.CompletionMarker) application.CompletionMarker {
	return application.CompletionMarker{
		ID:             model.ID,
		VisitID:        model.VisitID,
		RegistrationID: model.RegistrationID,
		Stage:          application.CompletionStage(model.Stage),
		Start:          model.Start,
		End:            model.End,
		Observations:   model.Observations,
		LastError:      model.LastError,
		CreatedBy:      model.CreatedBy,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceMarker(marker application.CompletionMarker) persistence.CompletionMarker {
	return persistence.CompletionMarker{
		ID:             marker.ID,
		VisitID:        marker.VisitID,
		RegistrationID: marker.RegistrationID,
		Stage:          string(marker.Stage),
		Start:          marker.Start,
		End:            marker.End,
		Observations:   marker.Observations,
		LastError:      marker.LastError,
		CreatedBy:      marker.CreatedBy,
		CreatedAt:      marker.CreatedAt,
		UpdatedAt:      marker.UpdatedAt,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
