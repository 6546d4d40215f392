package application

import (
	"context"
	"fmt"
	"time"
)

// VisitLister lists the visits visible to a session.
type VisitLister interface {
	ListVisits(ctx context.Context, session Session) ([]Visit, error)
}

// DashboardService aggregates counters for the dashboard landing page.
type DashboardService struct {
	visits   VisitLister
	clients  ClientSource
	users    UserSource
	now      func() time.Time
	location *time.Location
}

// NewDashboardService wires dependencies for the dashboard.
func NewDashboardService(visits VisitLister, clients ClientSource, users UserSource, now func() time.Time, location *time.Location) *DashboardService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &DashboardService{visits: visits, clients: clients, users: users, now: now, location: location}
}

// Stats computes the counters visible to the session. Client and user counts
// are only filled for roles that manage them.
func (s *DashboardService) Stats(ctx context.Context, session Session) (DashboardStats, error) {
	if s == nil {
		return DashboardStats{}, fmt.Errorf("DashboardService is nil")
	}
	if err := requireSession(session); err != nil {
		return DashboardStats{}, err
	}
	if !session.Can(CapViewDashboard) {
		return DashboardStats{}, ErrForbidden
	}

	var stats DashboardStats
	if s.visits != nil {
		visits, err := s.visits.ListVisits(ctx, session)
		if err != nil {
			return DashboardStats{}, err
		}
		stats = CountVisits(visits, s.now(), s.location)
	}

	if s.clients != nil && session.Can(CapManageClients) {
		clients, err := s.clients.ListClients(ctx, session)
		if err != nil {
			return DashboardStats{}, err
		}
		for _, c := range clients {
			if c.Active {
				stats.ActiveClients++
			}
		}
	}

	if s.users != nil && session.Can(CapManageUsers) {
		users, err := s.users.ListUsers(ctx, session)
		if err != nil {
			return DashboardStats{}, err
		}
		for _, u := range users {
			if u.IsActive() {
				stats.ActiveUsers++
			}
			if u.HasRole(RoleTechnician) {
				stats.Technicians++
			}
		}
	}
	return stats, nil
}

// CountVisits tallies visits by status. Pending counts both pending and in
// progress visits.
func CountVisits(visits []Visit, now time.Time, loc *time.Location) DashboardStats {
	stats := DashboardStats{TotalVisits: len(visits)}
	for _, v := range visits {
		switch v.Status {
		case VisitStatusPending, VisitStatusInProgress:
			stats.PendingVisits++
		case VisitStatusCompleted:
			stats.CompletedVisits++
		case VisitStatusCancelled:
			stats.CancelledVisits++
		}
	}
	stats.TodayVisits = len(FilterVisits(visits, VisitFilter{Bucket: BucketToday}, now, loc))
	return stats
}
