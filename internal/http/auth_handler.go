package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type authService interface {
	Login(ctx context.Context, params application.LoginParams) (application.Session, error)
	Refresh(ctx context.Context, token string) (application.Session, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Login exchanges credentials for a local session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, h.responder, h.log(r.Context(), "Login"), &req) {
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(r.Context(), "Login", "email", email)

	session, err := h.service.Login(r.Context(), application.LoginParams{Email: email, Password: req.Password})
	if err != nil {
		logger.ErrorContext(r.Context(), "login failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	w.Header().Set("X-Session-Token", session.Token)

	logger.InfoContext(r.Context(), "user authenticated", "user_id", session.UserID, "role", string(session.Role))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newSessionResponse(session, true))
}

// Refresh renews the remote token and rotates the local session token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := extractTokenFromRequest(r)
	if token == "" {
		h.log(r.Context(), "Refresh", "error_kind", "unauthorized").WarnContext(r.Context(), "refresh without session token")
		h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_MISSING_TOKEN",
			Message:   localize(msgMissingToken),
		})
		return
	}

	logger := h.log(r.Context(), "Refresh", "token_present", true)
	session, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		logger.ErrorContext(r.Context(), "token refresh failed", "error", err, "error_kind", application.ErrorKind(err))
		if errors.Is(err, application.ErrSessionExpired) || errors.Is(err, application.ErrUnauthorized) {
			clearSessionCookie(w)
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	w.Header().Set("X-Session-Token", session.Token)
	logger.InfoContext(r.Context(), "session refreshed", "user_id", session.UserID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newSessionResponse(session, true))
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := tokenFromContext(r.Context())
	if token == "" {
		token = extractTokenFromRequest(r)
	}
	logger := h.log(r.Context(), "Logout")

	if err := h.service.Logout(r.Context(), token); err != nil {
		logger.ErrorContext(r.Context(), "failed to revoke session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearSessionCookie(w)
	logger.InfoContext(r.Context(), "session revoked")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Me describes the current session and its capabilities.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newSessionResponse(session, false))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string      `json:"token,omitempty"`
	ExpiresAt string      `json:"expires_at"`
	User      sessionUser `json:"user"`
}

type sessionUser struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Roles        []string `json:"roles"`
	Capabilities []string `json:"capabilities"`
}

func newSessionResponse(session application.Session, includeToken bool) sessionResponse {
	caps := application.Capabilities(session.Role)
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c))
	}
	resp := sessionResponse{
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User: sessionUser{
			ID:           session.UserID,
			Email:        session.Email,
			Role:         string(session.Role),
			Roles:        append([]string{}, session.Roles...),
			Capabilities: names,
		},
	}
	if includeToken {
		resp.Token = session.Token
	}
	return resp
}
