package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/skynetapi"
)

// RemoteToken is a bearer token issued by the remote API.
type RemoteToken struct {
	Token     string
	ExpiresAt time.Time
}

// AccountGateway exchanges credentials and tokens with the remote API.
type AccountGateway interface {
	Login(ctx context.Context, email, password string) (RemoteToken, error)
	RenewToken(ctx context.Context, token string) (RemoteToken, error)
}

// TokenClaims is the identity carried by a remote token.
type TokenClaims struct {
	UserID    string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// TokenDecoder extracts the identity from a remote token.
type TokenDecoder interface {
	Decode(token string) (TokenClaims, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
// Sessions are looked up by their opaque local token.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// LoginParams carries the credentials of a login attempt.
type LoginParams struct {
	Email    string
	Password string
}

// AuthService owns the session lifecycle: Login creates the session, Logout
// tears it down, Refresh renews the remote token behind it.
type AuthService struct {
	accounts       AccountGateway
	decoder        TokenDecoder
	sessions       SessionRepository
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(accounts AccountGateway, decoder TokenDecoder, sessions SessionRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(accounts, decoder, sessions, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(accounts AccountGateway, decoder TokenDecoder, sessions SessionRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		accounts:       accounts,
		decoder:        decoder,
		sessions:       sessions,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login authenticates against the remote API and opens a local session.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil || s.decoder == nil {
		err = fmt.Errorf("account gateway not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", session.UserID,
			"session_id", session.ID,
			"role", session.Role,
		).InfoContext(ctx, "login succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var remote RemoteToken
	remote, err = s.accounts.Login(ctx, email, params.Password)
	if err != nil {
		err = mapLoginError(err)
		return
	}

	var claims TokenClaims
	claims, err = s.decoder.Decode(remote.Token)
	if err != nil {
		err = fmt.Errorf("decode remote token: %w", err)
		return
	}

	role := PrimaryRole(claims.Roles)
	if !ValidRole(role) {
		err = ErrForbidden
		return
	}

	now := s.now()
	id := s.tokenGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}
	if claims.Email == "" {
		claims.Email = email
	}

	session = Session{
		ID:          id,
		UserID:      claims.UserID,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Role:        role,
		RemoteToken: remote.Token,
		Token:       token,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   s.expiry(now, remote, claims),
	}

	if s.sessions != nil {
		if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			return
		}
		var persisted Session
		persisted, err = s.sessions.CreateSession(ctx, session)
		if err != nil {
			return
		}
		persisted.Token = token
		session = persisted
	}
	return
}

// ValidateSession resolves an opaque token into its active session.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if session.Revoked() {
		err = ErrUnauthorized
		return
	}
	if session.Expired(s.now()) {
		err = ErrSessionExpired
		return
	}
	session.Role = PrimaryRole(session.Roles)
	return
}

// Refresh renews the remote token and rotates the local session token.
func (s *AuthService) Refresh(ctx context.Context, token string) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil || s.decoder == nil {
		err = fmt.Errorf("account gateway not configured")
		return
	}

	logger := s.loggerWith(ctx, "Refresh", "token_provided", strings.TrimSpace(token) != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID, "user_id", session.UserID).InfoContext(ctx, "session refreshed")
	}()

	session, err = s.ValidateSession(ctx, token)
	if err != nil {
		return
	}

	var remote RemoteToken
	remote, err = s.accounts.RenewToken(ctx, session.RemoteToken)
	if err != nil {
		err = mapRemoteError(err)
		return
	}
	var claims TokenClaims
	claims, err = s.decoder.Decode(remote.Token)
	if err != nil {
		err = fmt.Errorf("decode remote token: %w", err)
		return
	}

	now := s.now()
	newToken := s.tokenGenerator()
	if newToken == "" {
		newToken = strings.TrimSpace(token)
	}
	session.Token = newToken
	session.RemoteToken = remote.Token
	if len(claims.Roles) > 0 {
		session.Roles = claims.Roles
		session.Role = PrimaryRole(claims.Roles)
	}
	session.UpdatedAt = now
	session.ExpiresAt = s.expiry(now, remote, claims)

	var persisted Session
	persisted, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		return
	}
	persisted.Token = newToken
	persisted.Role = PrimaryRole(persisted.Roles)
	session = persisted
	return
}

// Logout revokes the session behind token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "Logout")

	session, err := s.sessions.RevokeSession(ctx, trimmed, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to revoke session", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
			return ErrUnauthorized
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked", "session_id", session.ID, "user_id", session.UserID)
	return nil
}

// expiry caps the local session lifetime at the remote token's own expiry.
func (s *AuthService) expiry(now time.Time, remote RemoteToken, claims TokenClaims) time.Time {
	expires := now.Add(s.sessionTTL)
	for _, candidate := range []time.Time{remote.ExpiresAt, claims.ExpiresAt} {
		if !candidate.IsZero() && candidate.Before(expires) {
			expires = candidate
		}
	}
	return expires
}

func mapLoginError(err error) error {
	var apiErr *skynetapi.Error
	if errors.As(err, &apiErr) && (apiErr.HTTPStatus == 400 || apiErr.HTTPStatus == 401) {
		return errors.Join(ErrInvalidCredentials, err)
	}
	return mapRemoteError(err)
}
