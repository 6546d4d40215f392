package testfixtures

import (
	"log/slog"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation overrides the business timezone.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Accounts       application.AccountGateway
	Decoder        application.TokenDecoder
	Sessions       application.SessionRepository
	TokenGenerator func() string
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	token := deps.TokenGenerator
	if token == nil {
		token = f.IDGenerator.NextFunc()
	}
	return application.NewAuthServiceWithLogger(
		deps.Accounts,
		deps.Decoder,
		deps.Sessions,
		token,
		f.Clock.NowFunc(),
		deps.SessionTTL,
		deps.Logger,
	)
}

// VisitServiceDeps captures dependencies for constructing a visit service.
type VisitServiceDeps struct {
	Visits application.VisitGateway
	Cache  application.VisitDetailCache
	Logger *slog.Logger
}

// NewVisitService builds a visit service bound to the factory clock.
func (f *ServiceFactory) NewVisitService(deps VisitServiceDeps) *application.VisitService {
	return application.NewVisitServiceWithLogger(deps.Visits, deps.Cache, f.Clock.NowFunc(), f.Location, deps.Logger)
}

// LifecycleServiceDeps captures dependencies for constructing a lifecycle service.
type LifecycleServiceDeps struct {
	Visits   application.VisitGateway
	Markers  application.CompletionMarkerRepository
	Audit    application.StatusChangeRecorder
	Notifier application.VisitNotifier
	Cache    application.VisitDetailCache
	Logger   *slog.Logger
}

// NewLifecycleService builds a lifecycle service with deterministic marker ids.
func (f *ServiceFactory) NewLifecycleService(deps LifecycleServiceDeps) *application.LifecycleService {
	return application.NewLifecycleService(application.LifecycleDependencies{
		Visits:      deps.Visits,
		Markers:     deps.Markers,
		Audit:       deps.Audit,
		Notifier:    deps.Notifier,
		Cache:       deps.Cache,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         f.Clock.NowFunc(),
		Location:    f.Location,
		Logger:      deps.Logger,
	})
}
