package persistence

import "time"

// Session represents a dashboard session persisted for an operator. The local
// bearer token is never stored; TokenHash holds its digest instead.
type Session struct {
	ID          string
	UserID      string
	Email       string
	Roles       []string
	RemoteToken string
	// Token is only read on writes, where it is hashed into TokenHash.
	Token     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// CompletionMarker records the progress of a two-phase visit completion so a
// failed second phase can be resumed without registering the visit twice.
type CompletionMarker struct {
	ID             string
	VisitID        int64
	RegistrationID int64
	Stage          string
	Start          string
	End            string
	Observations   string
	LastError      string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusChange is one audited visit status change.
type StatusChange struct {
	ID         string
	VisitID    int64
	FromStatus int
	ToStatus   int
	Transition string
	Override   bool
	Reason     string
	ActorID    string
	ActorEmail string
	CreatedAt  time.Time
}
