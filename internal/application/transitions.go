package application

// TransitionName identifies a named lifecycle transition.
type TransitionName string

const (
	TransitionStart    TransitionName = "start"
	TransitionComplete TransitionName = "complete"
	TransitionCancel   TransitionName = "cancel"
	// TransitionOverride labels audited jumps that match no named transition.
	TransitionOverride TransitionName = "override"
)

// Transition is one legal edge of the visit lifecycle.
type Transition struct {
	Name TransitionName
	From VisitStatus
	To   VisitStatus
}

var namedTransitions = []Transition{
	{Name: TransitionStart, From: VisitStatusPending, To: VisitStatusInProgress},
	{Name: TransitionComplete, From: VisitStatusInProgress, To: VisitStatusCompleted},
	{Name: TransitionCancel, From: VisitStatusPending, To: VisitStatusCancelled},
	{Name: TransitionCancel, From: VisitStatusInProgress, To: VisitStatusCancelled},
}

// TransitionFor returns the named transition from -> to, if there is one.
func TransitionFor(from, to VisitStatus) (TransitionName, bool) {
	for _, t := range namedTransitions {
		if t.From == from && t.To == to {
			return t.Name, true
		}
	}
	return "", false
}

// AvailableTransitions lists the named transitions leaving from.
func AvailableTransitions(from VisitStatus) []Transition {
	var out []Transition
	for _, t := range namedTransitions {
		if t.From == from {
			out = append(out, t)
		}
	}
	return out
}

// Terminal reports whether no named transition leaves s.
func (s VisitStatus) Terminal() bool {
	return len(AvailableTransitions(s)) == 0
}

// requireTransition checks that name moves the visit out of its current status.
func requireTransition(name TransitionName, from VisitStatus) (VisitStatus, error) {
	for _, t := range namedTransitions {
		if t.Name == name && t.From == from {
			return t.To, nil
		}
	}
	return 0, ErrInvalidTransition
}
