package application

import (
	"context"
	"fmt"
	"sort"
	"time"
)

func testSession(role Role, userID string) Session {
	return Session{
		ID:          "session-" + userID,
		UserID:      userID,
		Email:       userID + "@skynet.test",
		Roles:       []string{string(role)},
		Role:        role,
		RemoteToken: "remote-" + userID,
		ExpiresAt:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// visitGatewayStub implements VisitGateway over in-memory maps and records
// every remote call in order.
type visitGatewayStub struct {
	visits  map[int64]Visit
	clients map[int64]Client

	calls              []string
	registrations      []CompletionInput
	created            []VisitInput
	updated            []VisitInput
	nextRegistrationID int64

	listErr     error
	getErr      error
	detailErr   error
	createErr   error
	updateErr   error
	statusErr   error
	registerErr error
	deleteErr   error
}

func newVisitGatewayStub(visits ...Visit) *visitGatewayStub {
	stub := &visitGatewayStub{
		visits:             make(map[int64]Visit),
		clients:            make(map[int64]Client),
		nextRegistrationID: 100,
	}
	for _, v := range visits {
		stub.visits[v.ID] = v
	}
	return stub
}

func (s *visitGatewayStub) ListVisits(ctx context.Context, token string) ([]Visit, error) {
	s.calls = append(s.calls, "list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sorted(func(Visit) bool { return true }), nil
}

func (s *visitGatewayStub) ListVisitsByTechnician(ctx context.Context, token, technicianID string) ([]Visit, error) {
	s.calls = append(s.calls, "list:"+technicianID)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sorted(func(v Visit) bool { return v.TechnicianID == technicianID }), nil
}

func (s *visitGatewayStub) sorted(keep func(Visit) bool) []Visit {
	out := make([]Visit, 0, len(s.visits))
	for _, v := range s.visits {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *visitGatewayStub) GetVisit(ctx context.Context, token string, id int64) (Visit, error) {
	s.calls = append(s.calls, "get")
	if s.getErr != nil {
		return Visit{}, s.getErr
	}
	v, ok := s.visits[id]
	if !ok {
		return Visit{}, ErrNotFound
	}
	return v, nil
}

func (s *visitGatewayStub) GetVisitDetail(ctx context.Context, token string, id int64) (VisitDetail, error) {
	s.calls = append(s.calls, "detail")
	if s.detailErr != nil {
		return VisitDetail{}, s.detailErr
	}
	v, ok := s.visits[id]
	if !ok {
		return VisitDetail{}, ErrNotFound
	}
	return VisitDetail{Visit: v, Client: s.clients[v.ClientID]}, nil
}

func (s *visitGatewayStub) CreateVisit(ctx context.Context, token string, input VisitInput) (Visit, error) {
	s.calls = append(s.calls, "create")
	if s.createErr != nil {
		return Visit{}, s.createErr
	}
	s.created = append(s.created, input)
	visit := Visit{
		ID:           int64(len(s.visits) + 1),
		ClientID:     input.ClientID,
		TechnicianID: input.TechnicianID,
		SupervisorID: input.SupervisorID,
		Status:       input.Status,
		Type:         input.Type,
		ScheduledAt:  input.ScheduledAt,
		Description:  input.Description,
	}
	s.visits[visit.ID] = visit
	return visit, nil
}

func (s *visitGatewayStub) UpdateVisit(ctx context.Context, token string, id int64, input VisitInput) error {
	s.calls = append(s.calls, "update")
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, input)
	return nil
}

func (s *visitGatewayStub) UpdateVisitStatus(ctx context.Context, token string, id int64, status VisitStatus) error {
	s.calls = append(s.calls, fmt.Sprintf("status:%d", status))
	if s.statusErr != nil {
		return s.statusErr
	}
	v := s.visits[id]
	v.Status = status
	s.visits[id] = v
	return nil
}

func (s *visitGatewayStub) RegisterVisit(ctx context.Context, token string, id int64, input CompletionInput) (int64, error) {
	s.calls = append(s.calls, "register")
	if s.registerErr != nil {
		return 0, s.registerErr
	}
	s.registrations = append(s.registrations, input)
	regID := s.nextRegistrationID
	s.nextRegistrationID++
	v := s.visits[id]
	v.Registration = &Registration{ID: regID, StartedAt: input.Start, EndedAt: input.End, Observations: input.Observations}
	s.visits[id] = v
	return regID, nil
}

func (s *visitGatewayStub) DeleteVisit(ctx context.Context, token string, id int64) error {
	s.calls = append(s.calls, "delete")
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.visits, id)
	return nil
}

// markerRepositoryStub implements CompletionMarkerRepository and keeps every
// saved stage for assertions.
type markerRepositoryStub struct {
	markers map[int64]CompletionMarker
	stages  []CompletionStage
	saveErr error
	// failOnStage makes SaveCompletionMarker fail for one stage only.
	failOnStage CompletionStage
}

func newMarkerRepositoryStub() *markerRepositoryStub {
	return &markerRepositoryStub{markers: make(map[int64]CompletionMarker)}
}

func (s *markerRepositoryStub) SaveCompletionMarker(ctx context.Context, marker CompletionMarker) (CompletionMarker, error) {
	if s.saveErr != nil && (s.failOnStage == "" || s.failOnStage == marker.Stage) {
		return CompletionMarker{}, s.saveErr
	}
	s.stages = append(s.stages, marker.Stage)
	s.markers[marker.VisitID] = marker
	return marker, nil
}

func (s *markerRepositoryStub) GetCompletionMarker(ctx context.Context, visitID int64) (CompletionMarker, error) {
	m, ok := s.markers[visitID]
	if !ok {
		return CompletionMarker{}, ErrNotFound
	}
	return m, nil
}

func (s *markerRepositoryStub) ListPendingCompletionMarkers(ctx context.Context) ([]CompletionMarker, error) {
	var out []CompletionMarker
	for _, m := range s.markers {
		if m.Pending() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitID < out[j].VisitID })
	return out, nil
}

type auditStub struct {
	changes []StatusChange
	err     error
}

func (s *auditStub) RecordStatusChange(ctx context.Context, change StatusChange) error {
	if s.err != nil {
		return s.err
	}
	s.changes = append(s.changes, change)
	return nil
}

type notifierStub struct {
	calls  []int64
	result NotificationResult
	err    error
}

func (s *notifierStub) NotifyVisitCompleted(ctx context.Context, session Session, visitID int64) (NotificationResult, error) {
	s.calls = append(s.calls, visitID)
	return s.result, s.err
}

type mailerStub struct {
	sent []VisitReportEmail
	id   string
	err  error
}

func (s *mailerStub) SendVisitReport(ctx context.Context, email VisitReportEmail) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, email)
	return s.id, nil
}

type clientGatewayStub struct {
	clients     []Client
	created     []ClientInput
	deactivated []int64
	err         error
}

func (s *clientGatewayStub) ListClients(ctx context.Context, token string) ([]Client, error) {
	return s.clients, s.err
}

func (s *clientGatewayStub) GetClient(ctx context.Context, token string, id int64) (Client, error) {
	if s.err != nil {
		return Client{}, s.err
	}
	for _, c := range s.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return Client{}, ErrNotFound
}

func (s *clientGatewayStub) CreateClient(ctx context.Context, token string, input ClientInput) (Client, error) {
	if s.err != nil {
		return Client{}, s.err
	}
	s.created = append(s.created, input)
	return Client{ID: int64(len(s.created)), FirstName: input.FirstName, FirstSurname: input.FirstSurname, Active: true}, nil
}

func (s *clientGatewayStub) UpdateClient(ctx context.Context, token string, id int64, input ClientInput) error {
	return s.err
}

func (s *clientGatewayStub) DeactivateClient(ctx context.Context, token string, id int64) error {
	if s.err != nil {
		return s.err
	}
	s.deactivated = append(s.deactivated, id)
	return nil
}

type userGatewayStub struct {
	users       []User
	assigned    []User
	assignedErr error
	err         error

	roleCalls   []string
	statusCalls []string
	resets      []PasswordResetInput
	changes     []PasswordChangeInput
	registered  []RegisterUserInput
}

func (s *userGatewayStub) ListUsers(ctx context.Context, token string) ([]User, error) {
	return s.users, s.err
}

func (s *userGatewayStub) AssignedTechnicians(ctx context.Context, token, supervisorID string) ([]User, error) {
	return s.assigned, s.assignedErr
}

func (s *userGatewayStub) MyProfile(ctx context.Context, token string) (User, error) {
	if s.err != nil {
		return User{}, s.err
	}
	if len(s.users) == 0 {
		return User{}, ErrNotFound
	}
	return s.users[0], nil
}

func (s *userGatewayStub) UpdateMyProfile(ctx context.Context, token string, input ProfileInput) error {
	return s.err
}

func (s *userGatewayStub) RegisterUser(ctx context.Context, token string, input RegisterUserInput) error {
	if s.err != nil {
		return s.err
	}
	s.registered = append(s.registered, input)
	return nil
}

func (s *userGatewayStub) UpdateUserProfile(ctx context.Context, token string, input ProfileInput) error {
	return s.err
}

func (s *userGatewayStub) AssignRole(ctx context.Context, token, email string, role Role) error {
	s.roleCalls = append(s.roleCalls, "+"+string(role)+":"+email)
	return s.err
}

func (s *userGatewayStub) RemoveRole(ctx context.Context, token, email string, role Role) error {
	s.roleCalls = append(s.roleCalls, "-"+string(role)+":"+email)
	return s.err
}

func (s *userGatewayStub) UpdateUserStatus(ctx context.Context, token, email string, active bool) error {
	s.statusCalls = append(s.statusCalls, fmt.Sprintf("%s:%v", email, active))
	return s.err
}

func (s *userGatewayStub) ChangePassword(ctx context.Context, token string, input PasswordChangeInput) error {
	s.changes = append(s.changes, input)
	return s.err
}

func (s *userGatewayStub) ResetPassword(ctx context.Context, token string, input PasswordResetInput) error {
	s.resets = append(s.resets, input)
	return s.err
}
