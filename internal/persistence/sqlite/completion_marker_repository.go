package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Fernatzoc/skynet-next/internal/persistence"
)

const markerColumns = `id, visit_id, registration_id, stage, start_at, end_at, observations, last_error, created_by, created_at, updated_at`

// CompletionMarkerRepository implements persistence.CompletionMarkerRepository
// using SQLite. There is at most one marker per visit.
type CompletionMarkerRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewCompletionMarkerRepository creates a new SQLite completion marker repository
func NewCompletionMarkerRepository(pool *ConnectionPool) *CompletionMarkerRepository {
	return &CompletionMarkerRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// SaveCompletionMarker inserts the marker or replaces the one stored for the
// same visit. The first ID and creation time survive a replace.
func (r *CompletionMarkerRepository) SaveCompletionMarker(ctx context.Context, marker persistence.CompletionMarker) (persistence.CompletionMarker, error) {
	if marker.VisitID <= 0 || strings.TrimSpace(marker.Stage) == "" {
		return persistence.CompletionMarker{}, persistence.ErrConstraintViolation
	}
	if strings.TrimSpace(marker.ID) == "" {
		marker.ID = uuid.NewString()
	}
	now := r.now().UTC().Truncate(time.Second)
	if marker.CreatedAt.IsZero() {
		marker.CreatedAt = now
	}
	if marker.UpdatedAt.IsZero() {
		marker.UpdatedAt = now
	}

	err := r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, `
			INSERT INTO completion_markers (`+markerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(visit_id) DO UPDATE SET
				registration_id = excluded.registration_id,
				stage = excluded.stage,
				start_at = excluded.start_at,
				end_at = excluded.end_at,
				observations = excluded.observations,
				last_error = excluded.last_error,
				updated_at = excluded.updated_at
		`,
			marker.ID,
			marker.VisitID,
			marker.RegistrationID,
			marker.Stage,
			marker.Start,
			marker.End,
			marker.Observations,
			marker.LastError,
			marker.CreatedBy,
			formatTime(marker.CreatedAt),
			formatTime(marker.UpdatedAt),
		)
		return err
	})
	if err != nil {
		return persistence.CompletionMarker{}, err
	}
	return r.GetCompletionMarker(ctx, marker.VisitID)
}

// GetCompletionMarker returns the marker stored for visitID.
func (r *CompletionMarkerRepository) GetCompletionMarker(ctx context.Context, visitID int64) (persistence.CompletionMarker, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+markerColumns+` FROM completion_markers WHERE visit_id = ?`, visitID)
	return r.scanMarker(row)
}

// ListCompletionMarkers returns the markers whose stage differs from
// excludeStage, oldest first. An empty excludeStage lists every marker.
func (r *CompletionMarkerRepository) ListCompletionMarkers(ctx context.Context, excludeStage string) ([]persistence.CompletionMarker, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+markerColumns+`
		FROM completion_markers
		WHERE stage <> ?
		ORDER BY created_at ASC, visit_id ASC
	`, excludeStage)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var markers []persistence.CompletionMarker
	for rows.Next() {
		marker, err := r.scanMarker(rows)
		if err != nil {
			return nil, err
		}
		markers = append(markers, marker)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return markers, nil
}

func (r *CompletionMarkerRepository) scanMarker(row rowScanner) (persistence.CompletionMarker, error) {
	var (
		marker               persistence.CompletionMarker
		createdAt, updatedAt string
	)
	err := row.Scan(
		&marker.ID,
		&marker.VisitID,
		&marker.RegistrationID,
		&marker.Stage,
		&marker.Start,
		&marker.End,
		&marker.Observations,
		&marker.LastError,
		&marker.CreatedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.CompletionMarker{}, r.mapper.MapError(err)
	}
	if marker.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.CompletionMarker{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if marker.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.CompletionMarker{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return marker, nil
}
