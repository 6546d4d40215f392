package application

import "time"

// VisitInput captures caller provided visit scheduling fields.
type VisitInput struct {
	ClientID     int64
	TechnicianID string
	SupervisorID string
	Status       VisitStatus
	Type         VisitType
	ScheduledAt  string
	Description  string
}

// CompletionInput is the execution record supplied when completing a visit.
type CompletionInput struct {
	Start        string
	End          string
	Observations string
}

// CompletionStage tracks how far a two-phase completion progressed.
type CompletionStage string

const (
	// CompletionStagePendingRegistration is recorded before the registration call.
	CompletionStagePendingRegistration CompletionStage = "pending_registration"
	// CompletionStageRegistered means the registration exists but the status update has not succeeded.
	CompletionStageRegistered CompletionStage = "registered"
	// CompletionStageCompleted means the status update succeeded.
	CompletionStageCompleted CompletionStage = "completed"
)

// CompletionMarker is the locally persisted progress of a visit completion.
type CompletionMarker struct {
	ID             string
	VisitID        int64
	RegistrationID int64
	Stage          CompletionStage
	Start          string
	End            string
	Observations   string
	LastError      string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Pending reports whether the completion still needs work.
func (m CompletionMarker) Pending() bool {
	return m.Stage != CompletionStageCompleted
}

// StatusChange is one audited status mutation.
type StatusChange struct {
	ID         string
	VisitID    int64
	From       VisitStatus
	To         VisitStatus
	Transition TransitionName
	Override   bool
	Reason     string
	ActorID    string
	ActorEmail string
	CreatedAt  time.Time
}

// NotificationResult reports the outcome of a completion email.
type NotificationResult struct {
	Attempted bool
	Success   bool
	EmailID   string
	Error     string
}

// CompletionResult is returned by CompleteVisit and ResumeCompletion.
type CompletionResult struct {
	Visit          Visit
	RegistrationID int64
	Notification   NotificationResult
	Warnings       []string
}

// ClientInput captures caller provided client fields.
type ClientInput struct {
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
}

// ProfileInput captures editable profile fields keyed by the user's email.
type ProfileInput struct {
	Email         string
	FirstName     string
	MiddleName    string
	LastName      string
	SecondSurname string
	Phone         string
}

// PasswordChangeInput is the self-service password change.
type PasswordChangeInput struct {
	Current      string
	New          string
	Confirmation string
}

// PasswordResetInput is the administrative password reset.
type PasswordResetInput struct {
	Email        string
	New          string
	Confirmation string
}

// DashboardStats summarizes the visit, client and user collections.
type DashboardStats struct {
	TotalVisits     int
	PendingVisits   int
	CompletedVisits int
	CancelledVisits int
	ActiveClients   int
	ActiveUsers     int
	Technicians     int
	TodayVisits     int
}

// RegisterUserInput captures the fields of a new account.
type RegisterUserInput struct {
	Email         string
	Password      string
	FirstName     string
	MiddleName    string
	LastName      string
	SecondSurname string
	Phone         string
}
