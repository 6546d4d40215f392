package application

import "time"

// VisitActions lists the lifecycle actions a session may take on a visit.
type VisitActions struct {
	CanStart        bool
	CanComplete     bool
	CanCancel       bool
	CanChangeStatus bool
	CanEdit         bool
	CanDelete       bool
}

// VisitView is the read model of a visit as presented to one session.
type VisitView struct {
	Visit           Visit
	StatusLabel     string
	TypeLabel       string
	ClientName      string
	TechnicianName  string
	SupervisorName  string
	ScheduledLabel  string
	HasRegistration bool
	Actions         VisitActions
}

// NewVisitView derives labels and available actions from the visit status and
// the session's capabilities.
func NewVisitView(visit Visit, session Session, loc *time.Location) VisitView {
	view := VisitView{
		Visit:           visit,
		StatusLabel:     visit.StatusLabel(),
		TypeLabel:       visit.TypeLabel(),
		ClientName:      visit.ClientName,
		TechnicianName:  visit.TechnicianName,
		SupervisorName:  visit.SupervisorName,
		HasRegistration: visit.HasRegistration(),
	}
	if view.SupervisorName == "" {
		view.SupervisorName = "Sin asignar"
	}
	if scheduled, err := visit.ScheduledTime(loc); err == nil {
		view.ScheduledLabel = FormatDisplayDateTime(scheduled)
	} else {
		view.ScheduledLabel = visit.ScheduledAt
	}

	manage := session.Can(CapManageVisits)
	operate := manage || (session.Can(CapViewMyVisits) && session.ownsVisit(visit))

	_, canStart := TransitionFor(visit.Status, VisitStatusInProgress)
	_, canComplete := TransitionFor(visit.Status, VisitStatusCompleted)
	_, canCancel := TransitionFor(visit.Status, VisitStatusCancelled)

	view.Actions = VisitActions{
		CanStart:        operate && canStart,
		CanComplete:     operate && canComplete,
		CanCancel:       manage && canCancel,
		CanChangeStatus: manage,
		CanEdit:         manage,
		CanDelete:       session.Can(CapDeleteVisits),
	}
	return view
}
