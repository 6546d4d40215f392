package persistence

import (
	"context"
	"time"
)

// SessionRepository stores authentication session state. Sessions are looked
// up by the plain local token; implementations compare digests only.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// CompletionMarkerRepository stores one completion marker per visit.
type CompletionMarkerRepository interface {
	SaveCompletionMarker(ctx context.Context, marker CompletionMarker) (CompletionMarker, error)
	GetCompletionMarker(ctx context.Context, visitID int64) (CompletionMarker, error)
	ListCompletionMarkers(ctx context.Context, excludeStage string) ([]CompletionMarker, error)
}

// StatusChangeFilter narrows status change queries.
type StatusChangeFilter struct {
	VisitID      int64
	OverrideOnly bool
	Since        *time.Time
}

// StatusChangeRepository stores the append-only visit status audit trail.
type StatusChangeRepository interface {
	RecordStatusChange(ctx context.Context, change StatusChange) error
	ListStatusChanges(ctx context.Context, filter StatusChangeFilter) ([]StatusChange, error)
}
