package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
)

// AuthenticateWithPassword verifies an email/password pair and returns the
// session claims of the identity. The checks run strictly in order: lookup,
// provider, stored hash, password comparison. Failures have no side effects
// on the identity record.
func (s *Service) AuthenticateWithPassword(ctx context.Context, in SignInInput) (types.Claims, error) {
	claims, err := s.authenticateWithPassword(ctx, in.normalize())
	s.observe(MethodPassword, err)
	return claims, err
}

func (s *Service) authenticateWithPassword(ctx context.Context, in SignInInput) (types.Claims, error) {
	if err := in.Validate(); err != nil {
		return types.Claims{}, validationFailure(err)
	}

	if s.throttle != nil {
		blocked, err := s.throttle.Blocked(ctx, in.Email)
		if err != nil {
			return types.Claims{}, s.internal("authenticate", in.Email, err)
		}
		if blocked {
			return types.Claims{}, rateLimited()
		}
	}

	identity, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.compareDecoy(in.Password)
			return types.Claims{}, s.failedAttempt(ctx, in.Email)
		}
		return types.Claims{}, s.internal("authenticate", in.Email, err)
	}

	if identity.Provider.IsSet() && identity.Provider != types.ProviderCredentials {
		return types.Claims{}, providerMismatch(identity.Provider)
	}

	if !identity.HasPassword() {
		s.compareDecoy(in.Password)
		return types.Claims{}, s.failedAttempt(ctx, in.Email)
	}

	ok, err := s.hasher.Compare(in.Password, identity.PasswordHash)
	if err != nil {
		return types.Claims{}, s.internal("authenticate", in.Email, err)
	}
	if !ok {
		return types.Claims{}, s.failedAttempt(ctx, in.Email)
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, in.Email); err != nil {
			s.logger.Sugar().Warnw("reset sign-in throttle failed", "email", in.Email, "error", err)
		}
	}

	return ClaimsFor(identity), nil
}

// compareDecoy spends one hash comparison on a throwaway hash so that a
// missing identity or password costs as much as a wrong password.
func (s *Service) compareDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Sugar().Warnw("prepare decoy hash failed", "error", err)
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash == "" {
		return
	}
	_, _ = s.hasher.Compare(password, s.decoyHash)
}

func (s *Service) failedAttempt(ctx context.Context, email string) error {
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, email); err != nil {
			s.logger.Sugar().Warnw("record failed sign-in failed", "email", email, "error", err)
		}
	}
	return invalidCredentials()
}

// RegisterWithPassword creates a credentials identity for a self-service
// sign-up. The IsAdmin flag of the input is ignored.
func (s *Service) RegisterWithPassword(ctx context.Context, in SignUpInput) (types.Identity, error) {
	identity, err := s.register(ctx, in.normalize(), false)
	s.observe(MethodSignUp, err)
	return identity, err
}

// RegisterByAdmin creates a credentials identity on behalf of an administrator,
// honouring the requested IsAdmin flag.
func (s *Service) RegisterByAdmin(ctx context.Context, in SignUpInput) (types.Identity, error) {
	identity, err := s.register(ctx, in.normalize(), true)
	s.observe(MethodSignUp, err)
	return identity, err
}

func (s *Service) register(ctx context.Context, in SignUpInput, asAdmin bool) (types.Identity, error) {
	if err := in.Validate(); err != nil {
		return types.Identity{}, validationFailure(err)
	}

	_, err := s.store.GetByEmail(ctx, in.Email)
	if err == nil {
		return types.Identity{}, alreadyExists(in.Email)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Identity{}, s.internal("register", in.Email, err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.Identity{}, s.internal("register", in.Email, err)
	}

	created, err := s.store.Create(ctx, types.Identity{
		Email:        in.Email,
		PasswordHash: hashed,
		Provider:     types.ProviderCredentials,
		DisplayName:  in.FirstName + " " + in.LastName,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsAdmin:      asAdmin && in.IsAdmin,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return types.Identity{}, alreadyExists(in.Email)
		}
		return types.Identity{}, s.internal("register", in.Email, err)
	}

	s.publish(ctx, types.EventIdentityCreated, created)
	return created, nil
}
