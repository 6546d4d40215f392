package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VisitStatus is the lifecycle state of a visit.
type VisitStatus int

const (
	VisitStatusPending    VisitStatus = 1
	VisitStatusInProgress VisitStatus = 2
	VisitStatusCompleted  VisitStatus = 3
	VisitStatusCancelled  VisitStatus = 4
)

var visitStatusLabels = map[VisitStatus]string{
	VisitStatusPending:    "Pendiente",
	VisitStatusInProgress: "En Progreso",
	VisitStatusCompleted:  "Completada",
	VisitStatusCancelled:  "Cancelada",
}

// Valid reports whether s is one of the four known states.
func (s VisitStatus) Valid() bool {
	_, ok := visitStatusLabels[s]
	return ok
}

// Label returns the operator facing name, or "" for unknown states.
func (s VisitStatus) Label() string {
	return visitStatusLabels[s]
}

// VisitStatuses lists every state in id order.
func VisitStatuses() []VisitStatus {
	return []VisitStatus{VisitStatusPending, VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled}
}

// ParseVisitStatus accepts a numeric status id.
func ParseVisitStatus(value string) (VisitStatus, error) {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid visit status %q", value)
	}
	status := VisitStatus(id)
	if !status.Valid() {
		return 0, fmt.Errorf("invalid visit status %q", value)
	}
	return status, nil
}

// VisitType is the service category of a visit.
type VisitType int

const (
	VisitTypeInstallation VisitType = 1
	VisitTypeMaintenance  VisitType = 2
	VisitTypeRepair       VisitType = 3
	VisitTypeInspection   VisitType = 4
)

var visitTypeLabels = map[VisitType]string{
	VisitTypeInstallation: "Instalación",
	VisitTypeMaintenance:  "Mantenimiento",
	VisitTypeRepair:       "Reparación",
	VisitTypeInspection:   "Inspección",
}

// Valid reports whether t is one of the four known categories.
func (t VisitType) Valid() bool {
	_, ok := visitTypeLabels[t]
	return ok
}

// Label returns the operator facing name, or "" for unknown categories.
func (t VisitType) Label() string {
	return visitTypeLabels[t]
}

// Registration is the execution record attached to a visit once it is registered.
type Registration struct {
	ID           int64
	StartedAt    string
	EndedAt      string
	Observations string
}

// Visit is a scheduled field-service appointment. ScheduledAt keeps the wire
// representation; use ScheduledTime to interpret it.
type Visit struct {
	ID             int64
	ClientID       int64
	ClientName     string
	TechnicianID   string
	TechnicianName string
	SupervisorID   string
	SupervisorName string
	Status         VisitStatus
	StatusName     string
	Type           VisitType
	TypeName       string
	ScheduledAt    string
	Description    string
	Registration   *Registration
}

// StatusLabel prefers the label supplied by the server and falls back to the local table.
func (v Visit) StatusLabel() string {
	if strings.TrimSpace(v.StatusName) != "" {
		return v.StatusName
	}
	return v.Status.Label()
}

// TypeLabel prefers the label supplied by the server and falls back to the local table.
func (v Visit) TypeLabel() string {
	if strings.TrimSpace(v.TypeName) != "" {
		return v.TypeName
	}
	return v.Type.Label()
}

// HasRegistration reports whether an execution record exists.
func (v Visit) HasRegistration() bool {
	return v.Registration != nil && v.Registration.ID != 0
}

// ScheduledTime parses ScheduledAt; timestamps without an offset are read in loc.
func (v Visit) ScheduledTime(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(v.ScheduledAt, loc)
}

// Client is a customer receiving visits.
type Client struct {
	ID            int64
	FirstName     string
	MiddleName    string
	ThirdName     string
	FirstSurname  string
	SecondSurname string
	Phone         string
	Email         string
	Latitude      float64
	Longitude     float64
	Address       string
	Active        bool
}

// DisplayName joins the non-empty given names followed by the non-empty surnames.
func (c Client) DisplayName() string {
	return joinNonEmpty(c.FirstName, c.MiddleName, c.ThirdName, c.FirstSurname, c.SecondSurname)
}

// ShortName is the first name and first surname, as used in client listings.
func (c Client) ShortName() string {
	return joinNonEmpty(c.FirstName, c.FirstSurname)
}

// VisitDetail is a visit together with its client snapshot.
type VisitDetail struct {
	Visit  Visit
	Client Client
}

// User is an operator account managed by the remote API.
type User struct {
	ID            string
	Email         string
	Roles         []string
	FirstName     string
	MiddleName    string
	LastName      string
	SecondSurname string
	Phone         string
	Active        *bool
	CreatedAt     string
}

// FullName joins the user's non-empty name parts.
func (u User) FullName() string {
	return joinNonEmpty(u.FirstName, u.MiddleName, u.LastName, u.SecondSurname)
}

// PrimaryRole is the first role in the user's list.
func (u User) PrimaryRole() Role {
	return PrimaryRole(u.Roles)
}

// HasRole reports whether role appears anywhere in the user's list.
func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if Role(r) == role {
			return true
		}
	}
	return false
}

// IsActive treats an unknown status as inactive.
func (u User) IsActive() bool {
	return u.Active != nil && *u.Active
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}
