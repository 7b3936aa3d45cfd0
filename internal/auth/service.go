package auth

import (
	"context"
	"sync"
	"time"

	"github.com/shopadmin/apiserver/types"
	"go.uber.org/zap"
)

// Store is the slice of the identity store the policy needs. Implementations
// must enforce one identity per email and report a duplicate create as
// store.ErrAlreadyExists.
type Store interface {
	GetByEmail(ctx context.Context, email string) (types.Identity, error)
	Create(ctx context.Context, identity types.Identity) (types.Identity, error)

	// ClaimProvider sets the provider of an identity whose provider is unset.
	// It returns store.ErrNotFound when no such unclaimed identity exists.
	ClaimProvider(ctx context.Context, id string, provider types.Provider) (types.Identity, error)
}

// Throttle counts failed password sign-ins per key.
type Throttle interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// EventPublisher receives identity lifecycle events.
type EventPublisher interface {
	PublishIdentityEvent(ctx context.Context, event types.IdentityEvent) error
}

// Observer records the outcome of every attempt.
type Observer interface {
	ObserveAttempt(method string, outcome Kind)
}

// SwitchObserver is optionally implemented by an Observer to count federated
// sign-ins that reuse an identity owned by a different federated provider.
type SwitchObserver interface {
	ObserveProviderSwitch()
}

const (
	MethodPassword  = "password"
	MethodSignUp    = "signup"
	MethodFederated = "federated"

	// OutcomeSuccess is reported to observers for successful attempts.
	OutcomeSuccess Kind = "success"
)

// Service implements identity reconciliation and credential verification.
type Service struct {
	store               Store
	hasher              PasswordHasher
	throttle            Throttle
	events              EventPublisher
	observer            Observer
	logger              *zap.Logger
	allowProviderSwitch bool
	now                 func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// Option configures a Service.
type Option func(*Service)

func WithThrottle(throttle Throttle) Option {
	return func(s *Service) { s.throttle = throttle }
}

func WithEvents(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

func WithObserver(observer Observer) Option {
	return func(s *Service) { s.observer = observer }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProviderSwitch controls whether an identity owned by one federated
// provider may be signed into through a different federated provider.
func WithProviderSwitch(allow bool) Option {
	return func(s *Service) { s.allowProviderSwitch = allow }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{
		store:               store,
		hasher:              hasher,
		logger:              zap.NewNop(),
		allowProviderSwitch: true,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClaimsFor derives the token claims of an identity.
func ClaimsFor(identity types.Identity) types.Claims {
	return types.Claims{
		SubjectID:   identity.ID,
		IsAdmin:     identity.IsAdmin,
		DisplayName: identity.DisplayName,
		FirstName:   identity.FirstName,
		LastName:    identity.LastName,
		PictureURL:  identity.PictureURL,
	}
}

func (s *Service) observe(method string, err error) {
	if s.observer == nil {
		return
	}
	if err == nil {
		s.observer.ObserveAttempt(method, OutcomeSuccess)
		return
	}
	s.observer.ObserveAttempt(method, KindOf(err))
}

func (s *Service) publish(ctx context.Context, eventType string, identity types.Identity) {
	if s.events == nil {
		return
	}
	event := types.IdentityEvent{
		Type:       eventType,
		IdentityID: identity.ID,
		Email:      identity.Email,
		Provider:   identity.Provider,
		OccurredAt: s.now(),
	}
	if err := s.events.PublishIdentityEvent(ctx, event); err != nil {
		s.logger.Warn("publish identity event failed",
			zap.String("type", eventType),
			zap.String("identity_id", identity.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) internal(op, email string, err error) error {
	s.logger.Error("auth operation failed",
		zap.String("op", op),
		zap.String("email", email),
		zap.Error(err),
	)
	return internalError(err)
}
