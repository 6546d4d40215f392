package http

import (
	"log/slog"
	"net/http"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Visits        *VisitHandler
	Clients       *ClientHandler
	Users         *UserHandler
	Dashboard     *DashboardHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler
	Sessions      SessionValidator
	Logger        *slog.Logger
	Middleware    []func(http.Handler) http.Handler
}

// NewRouter registers every endpoint on a ServeMux. Routes other than login,
// token refresh and the health check run behind RequireSession; capability
// gates are applied per route and the services repeat the finer checks.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	logger := defaultLogger(cfg.Logger)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		newResponder(logger).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var requireSession func(http.Handler) http.Handler
	if cfg.Sessions != nil {
		requireSession = RequireSession(cfg.Sessions, logger)
	}
	protect := func(pattern string, h http.HandlerFunc, caps ...application.Capability) {
		var handler http.Handler = h
		for i := len(caps) - 1; i >= 0; i-- {
			handler = RequireCapability(caps[i], logger)(handler)
		}
		if requireSession != nil {
			handler = requireSession(handler)
		}
		mux.Handle(pattern, handler)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /login", cfg.Auth.Login)
		mux.HandleFunc("POST /token/refresh", cfg.Auth.Refresh)
		protect("POST /logout", cfg.Auth.Logout)
		protect("GET /me", cfg.Auth.Me)
	}

	if cfg.Visits != nil {
		v := cfg.Visits
		protect("GET /visits", v.List)
		protect("POST /visits", v.Create, application.CapManageVisits)
		protect("GET /visits/pending-completions", v.PendingCompletions)
		protect("GET /visits/{id}", v.Get)
		protect("PUT /visits/{id}", v.Update, application.CapManageVisits)
		protect("DELETE /visits/{id}", v.Delete, application.CapDeleteVisits)
		protect("POST /visits/{id}/start", v.Start)
		protect("POST /visits/{id}/complete", v.Complete)
		protect("POST /visits/{id}/resume", v.Resume)
		protect("POST /visits/{id}/cancel", v.Cancel, application.CapManageVisits)
		protect("PUT /visits/{id}/status", v.ChangeStatus, application.CapManageVisits)
	}

	if cfg.Clients != nil {
		c := cfg.Clients
		protect("GET /clients", c.List)
		protect("POST /clients", c.Create, application.CapManageClients)
		protect("GET /clients/{id}", c.Get)
		protect("PUT /clients/{id}", c.Update, application.CapManageClients)
		protect("DELETE /clients/{id}", c.Delete, application.CapManageClients)
	}

	if cfg.Users != nil {
		u := cfg.Users
		protect("GET /users", u.List, application.CapManageUsers)
		protect("POST /users", u.Register, application.CapManageUsers)
		protect("GET /users/technicians", u.Technicians)
		protect("GET /users/supervisors", u.Supervisors)
		protect("PUT /users/profile", u.UpdateProfile, application.CapManageUsers)
		protect("POST /users/roles", u.AssignRole, application.CapManageUsers)
		protect("DELETE /users/roles", u.RemoveRole, application.CapManageUsers)
		protect("PUT /users/status", u.SetStatus, application.CapManageUsers)
		protect("PUT /users/password", u.ResetPassword, application.CapManageUsers)
		protect("GET /me/profile", u.MyProfile)
		protect("PUT /me/profile", u.UpdateMyProfile)
		protect("PUT /me/password", u.ChangePassword)
	}

	if cfg.Dashboard != nil {
		protect("GET /dashboard/stats", cfg.Dashboard.Stats, application.CapViewDashboard)
	}

	if cfg.Reports != nil {
		protect("GET /reports/visits.pdf", cfg.Reports.Visits)
		protect("GET /reports/clients.pdf", cfg.Reports.Clients, application.CapManageClients)
		protect("GET /reports/users.pdf", cfg.Reports.Users, application.CapManageUsers)
	}

	if cfg.Notifications != nil {
		protect("POST /api/send-visit-report", cfg.Notifications.SendVisitReport)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
