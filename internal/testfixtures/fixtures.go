package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/persistence"
)

var (
	sessionCounter uint64
	markerCounter  uint64
	visitCounter   uint64
)

var referenceTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Session fixtures -----------------------------

// SessionFixture represents a deterministic dashboard session.
type SessionFixture struct {
	ID          string
	UserID      string
	Email       string
	Roles       []string
	RemoteToken string
	Token       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a technician session valid for one day.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	fixture := SessionFixture{
		ID:          fmt.Sprintf("session-%03d", idx),
		UserID:      fmt.Sprintf("tec-%03d", idx),
		Email:       fmt.Sprintf("tec-%03d@skynet.test", idx),
		Roles:       []string{string(application.RoleTechnician)},
		RemoteToken: fmt.Sprintf("remote-%03d", idx),
		Token:       fmt.Sprintf("token-%03d", idx),
		ExpiresAt:   created.Add(24 * time.Hour),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionUser overrides the session owner.
func WithSessionUser(id, email string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
		f.Email = email
	}
}

// WithSessionRoles overrides the session roles.
func WithSessionRoles(roles ...application.Role) SessionOption {
	return func(f *SessionFixture) {
		f.Roles = f.Roles[:0:0]
		for _, role := range roles {
			f.Roles = append(f.Roles, string(role))
		}
	}
}

// WithSessionToken overrides the local token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt overrides the expiry.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt marks the session revoked at t.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application materialises the fixture as an application session.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Email:       f.Email,
		Roles:       append([]string(nil), f.Roles...),
		Role:        application.PrimaryRole(f.Roles),
		RemoteToken: f.RemoteToken,
		Token:       f.Token,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		ExpiresAt:   f.ExpiresAt,
		RevokedAt:   copyTime(f.RevokedAt),
	}
}

// Persistence materialises the fixture as a persistence record.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Email:       f.Email,
		Roles:       append([]string(nil), f.Roles...),
		RemoteToken: f.RemoteToken,
		Token:       f.Token,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   copyTime(f.RevokedAt),
	}
}

// ------------------------- Completion marker fixtures -------------------------

// MarkerFixture represents a completion marker at a given stage.
type MarkerFixture struct {
	ID             string
	VisitID        int64
	RegistrationID int64
	Stage          application.CompletionStage
	Start          string
	End            string
	Observations   string
	LastError      string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MarkerOption configures the generated marker fixture.
type MarkerOption func(*MarkerFixture)

// NewMarkerFixture returns a marker waiting for its registration call.
func NewMarkerFixture(opts ...MarkerOption) MarkerFixture {
	idx := atomic.AddUint64(&markerCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := MarkerFixture{
		ID:           fmt.Sprintf("marker-%03d", idx),
		VisitID:      int64(1000 + idx),
		Stage:        application.CompletionStagePendingRegistration,
		Start:        "2025-03-01T09:00",
		End:          "2025-03-01T10:30",
		Observations: "Trabajo finalizado",
		CreatedBy:    "tec-001",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMarkerVisit overrides the visit id.
func WithMarkerVisit(id int64) MarkerOption {
	return func(f *MarkerFixture) {
		f.VisitID = id
	}
}

// WithMarkerStage overrides the stage and registration id.
func WithMarkerStage(stage application.CompletionStage, registrationID int64) MarkerOption {
	return func(f *MarkerFixture) {
		f.Stage = stage
		f.RegistrationID = registrationID
	}
}

// WithMarkerError records a failure on the marker.
func WithMarkerError(msg string) MarkerOption {
	return func(f *MarkerFixture) {
		f.LastError = msg
	}
}

// Application materialises the fixture as an application marker.
func (f MarkerFixture) Application() application.CompletionMarker {
	return application.CompletionMarker{
		ID:             f.ID,
		VisitID:        f.VisitID,
		RegistrationID: f.RegistrationID,
		Stage:          f.Stage,
		Start:          f.Start,
		End:            f.End,
		Observations:   f.Observations,
		LastError:      f.LastError,
		CreatedBy:      f.CreatedBy,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence materialises the fixture as a persistence record.
func (f MarkerFixture) Persistence() persistence.CompletionMarker {
	return persistence.CompletionMarker{
		ID:             f.ID,
		VisitID:        f.VisitID,
		RegistrationID: f.RegistrationID,
		Stage:          string(f.Stage),
		Start:          f.Start,
		End:            f.End,
		Observations:   f.Observations,
		LastError:      f.LastError,
		CreatedBy:      f.CreatedBy,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// ------------------------------ Visit fixtures ------------------------------

// VisitOption configures the generated visit.
type VisitOption func(*application.Visit)

// NewVisit returns a pending maintenance visit assigned to tec-001.
func NewVisit(opts ...VisitOption) application.Visit {
	idx := atomic.AddUint64(&visitCounter, 1)
	visit := application.Visit{
		ID:             int64(idx),
		ClientID:       3,
		ClientName:     "Juan Pérez",
		TechnicianID:   "tec-001",
		TechnicianName: "Luis Ruiz",
		SupervisorID:   "sup-001",
		SupervisorName: "Ana López",
		Status:         application.VisitStatusPending,
		Type:           application.VisitTypeMaintenance,
		ScheduledAt:    referenceTime.Add(time.Duration(idx) * time.Hour).Format("2006-01-02T15:04:05"),
		Description:    "Mantenimiento preventivo",
	}
	for _, opt := range opts {
		opt(&visit)
	}
	return visit
}

// WithVisitID overrides the visit id.
func WithVisitID(id int64) VisitOption {
	return func(v *application.Visit) {
		v.ID = id
	}
}

// WithVisitStatus overrides the visit status.
func WithVisitStatus(status application.VisitStatus) VisitOption {
	return func(v *application.Visit) {
		v.Status = status
	}
}

// WithVisitTechnician assigns the visit to a technician.
func WithVisitTechnician(id, name string) VisitOption {
	return func(v *application.Visit) {
		v.TechnicianID = id
		v.TechnicianName = name
	}
}

// WithVisitRegistration attaches a registration to the visit.
func WithVisitRegistration(id int64) VisitOption {
	return func(v *application.Visit) {
		v.Registration = &application.Registration{ID: id, StartedAt: "2025-03-01T09:00:00", EndedAt: "2025-03-01T10:30:00"}
	}
}

func copyTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	clone := *src
	return &clone
}
