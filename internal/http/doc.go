// Package http exposes the SkyNet visit workflow over JSON and PDF endpoints.
//
// Authentication:
//   - POST /login: body {"email","password"}. Responds 201 with
//     {"token","expires_at","user":{...,"capabilities"}}; the token is also set
//     in the `X-Session-Token` header and the `session_token` cookie.
//   - POST /token/refresh: rotates the current session token.
//   - POST /logout, GET /me.
//
// Every other route requires a session token, taken from the Authorization
// bearer header or the session cookie:
//   - /visits: listing with search, status, technician and bucket query
//     parameters, CRUD, and the lifecycle actions start, complete, resume,
//     cancel and status. GET /visits/pending-completions lists interrupted
//     completions.
//   - /clients: CRUD; DELETE deactivates.
//   - /users and /me/profile, /me/password: account administration and
//     self service.
//   - GET /dashboard/stats.
//   - GET /reports/{visits,clients,users}.pdf.
//   - POST /api/send-visit-report.
//
// Errors are returned as {"error_code","message","errors"} with Spanish
// messages. Request and response DTOs live alongside their handlers.
package http
