package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Fernatzoc/skynet-next/internal/persistence"
)

// StatusChangeRepository implements persistence.StatusChangeRepository using
// SQLite. Rows are never updated or deleted.
type StatusChangeRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewStatusChangeRepository creates a new SQLite status change repository
func NewStatusChangeRepository(pool *ConnectionPool) *StatusChangeRepository {
	return &StatusChangeRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// RecordStatusChange appends change to the audit trail.
func (r *StatusChangeRepository) RecordStatusChange(ctx context.Context, change persistence.StatusChange) error {
	if change.VisitID <= 0 {
		return persistence.ErrConstraintViolation
	}
	if strings.TrimSpace(change.ID) == "" {
		change.ID = uuid.NewString()
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = r.now()
	}

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, `
			INSERT INTO status_changes (id, visit_id, from_status, to_status, transition, override, reason, actor_id, actor_email, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			change.ID,
			change.VisitID,
			change.FromStatus,
			change.ToStatus,
			change.Transition,
			change.Override,
			change.Reason,
			change.ActorID,
			strings.ToLower(strings.TrimSpace(change.ActorEmail)),
			formatTime(change.CreatedAt),
		)
		return err
	})
}

// ListStatusChanges returns matching changes in the order they were recorded.
func (r *StatusChangeRepository) ListStatusChanges(ctx context.Context, filter persistence.StatusChangeFilter) ([]persistence.StatusChange, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.VisitID > 0 {
		clauses = append(clauses, "visit_id = ?")
		args = append(args, filter.VisitID)
	}
	if filter.OverrideOnly {
		clauses = append(clauses, "override = 1")
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}

	query := `SELECT id, visit_id, from_status, to_status, transition, override, reason, actor_id, actor_email, created_at FROM status_changes`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var changes []persistence.StatusChange
	for rows.Next() {
		var (
			change    persistence.StatusChange
			createdAt string
		)
		if err := rows.Scan(
			&change.ID,
			&change.VisitID,
			&change.FromStatus,
			&change.ToStatus,
			&change.Transition,
			&change.Override,
			&change.Reason,
			&change.ActorID,
			&change.ActorEmail,
			&createdAt,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if change.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return changes, nil
}
