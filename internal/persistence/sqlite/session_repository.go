package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/Fernatzoc/skynet-next/internal/persistence"
)

// HashToken returns the digest stored in place of a local session token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

const sessionColumns = `id, user_id, email, roles, remote_token, token_hash, expires_at, revoked_at, created_at, updated_at`

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// CreateSession stores a new session. A missing ID is filled with a UUID.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if strings.TrimSpace(session.ID) == "" {
		session.ID = uuid.NewString()
	}
	normalized, err := r.normalizeSession(session)
	if err != nil {
		return persistence.Session{}, err
	}
	if normalized.CreatedAt.IsZero() {
		normalized.CreatedAt = r.now().UTC().Truncate(time.Second)
	}
	if normalized.UpdatedAt.IsZero() {
		normalized.UpdatedAt = normalized.CreatedAt
	}

	roles, err := json.Marshal(normalized.Roles)
	if err != nil {
		return persistence.Session{}, fmt.Errorf("encode roles: %w", err)
	}

	err = r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, `
			INSERT INTO sessions (`+sessionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			normalized.ID,
			normalized.UserID,
			normalized.Email,
			string(roles),
			normalized.RemoteToken,
			normalized.TokenHash,
			formatTime(normalized.ExpiresAt),
			formatNullableTime(normalized.RevokedAt),
			formatTime(normalized.CreatedAt),
			formatTime(normalized.UpdatedAt),
		)
		return err
	})
	if err != nil {
		return persistence.Session{}, err
	}

	normalized.Token = ""
	return normalized, nil
}

// GetSession retrieves a session by its plain token value
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if strings.TrimSpace(token) == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, HashToken(token))
	return r.scanSession(row)
}

// UpdateSession rewrites the mutable fields of an existing session. When
// Token is set the stored digest is rotated to it.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if strings.TrimSpace(session.ID) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	var updated persistence.Session
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := r.scanSession(r.helper.QueryRowTx(ctx, tx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, session.ID))
		if err != nil {
			return err
		}

		session.UserID = current.UserID
		session.CreatedAt = current.CreatedAt
		if strings.TrimSpace(session.Token) == "" && session.TokenHash == "" {
			session.TokenHash = current.TokenHash
		}
		normalized, err := r.normalizeSession(session)
		if err != nil {
			return err
		}
		if normalized.UpdatedAt.IsZero() || !normalized.UpdatedAt.After(current.UpdatedAt) {
			normalized.UpdatedAt = r.now().UTC().Truncate(time.Second)
		}

		roles, err := json.Marshal(normalized.Roles)
		if err != nil {
			return fmt.Errorf("encode roles: %w", err)
		}

		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE sessions
			SET email = ?, roles = ?, remote_token = ?, token_hash = ?, expires_at = ?, revoked_at = ?, updated_at = ?
			WHERE id = ?
		`,
			normalized.Email,
			string(roles),
			normalized.RemoteToken,
			normalized.TokenHash,
			formatTime(normalized.ExpiresAt),
			formatNullableTime(normalized.RevokedAt),
			formatTime(normalized.UpdatedAt),
			normalized.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if rows, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if rows == 0 {
			return persistence.ErrNotFound
		}

		normalized.Token = ""
		updated = normalized
		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return updated, nil
}

// RevokeSession marks the session behind token as revoked. Revoking twice
// keeps the first revocation time.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	if strings.TrimSpace(token) == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	hash := HashToken(token)

	var revoked persistence.Session
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := r.scanSession(r.helper.QueryRowTx(ctx, tx, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, hash))
		if err != nil {
			return err
		}
		if current.RevokedAt != nil {
			revoked = current
			return nil
		}

		at := revokedAt.UTC().Truncate(time.Second)
		if _, err := r.helper.ExecTx(ctx, tx, `UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE id = ?`,
			formatTime(at), formatTime(at), current.ID); err != nil {
			return r.mapper.MapError(err)
		}
		current.RevokedAt = &at
		current.UpdatedAt = at
		revoked = current
		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return revoked, nil
}

// DeleteExpiredSessions removes sessions that expired on or before reference
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SessionRepository) scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                         persistence.Session
		roles                           string
		expiresAt, createdAt, updatedAt string
		revokedAt                       sql.NullString
	)
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Email,
		&roles,
		&session.RemoteToken,
		&session.TokenHash,
		&expiresAt,
		&revokedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	if err := json.Unmarshal([]byte(roles), &session.Roles); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to decode roles: %w", err)
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if session.RevokedAt, err = parseNullableTime(revokedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse revoked_at: %w", err)
	}
	return session, nil
}

// normalizeSession validates a session and derives its token digest.
func (r *SessionRepository) normalizeSession(session persistence.Session) (persistence.Session, error) {
	session.ID = strings.TrimSpace(session.ID)
	session.UserID = strings.TrimSpace(session.UserID)
	if session.ID == "" || session.UserID == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if token := strings.TrimSpace(session.Token); token != "" {
		session.TokenHash = HashToken(token)
	}
	if session.TokenHash == "" || session.ExpiresAt.IsZero() {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	session.Email = strings.ToLower(strings.TrimSpace(session.Email))
	session.Roles = append([]string{}, session.Roles...)
	session.ExpiresAt = session.ExpiresAt.UTC().Truncate(time.Second)
	session.CreatedAt = session.CreatedAt.UTC().Truncate(time.Second)
	session.UpdatedAt = session.UpdatedAt.UTC().Truncate(time.Second)
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC().Truncate(time.Second)
		session.RevokedAt = &revoked
	}
	return session, nil
}
