package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
	"go.uber.org/zap"
)

// PlaceholderName fills name fields a federated provider did not supply.
const PlaceholderName = "Unknown"

// maxReconcileAttempts bounds the lookup-decide-write loop when a concurrent
// request wins the race for the same email.
const maxReconcileAttempts = 3

var errReconcileConflict = errors.New("identity changed during reconciliation")

// Reconciliation is the outcome of an allowed federated sign-in.
type Reconciliation struct {
	Identity types.Identity

	// Created is set when the sign-in established a new identity.
	Created bool

	// Claimed is set when a provider-less identity was assigned to the provider.
	Claimed bool
}

// ReconcileFederatedSignIn decides whether a federated sign-in may proceed for
// the profile's email and applies any resulting identity mutation.
//
// An identity owned by the credentials provider is never signed into through a
// federated provider. That check happens before any write.
func (s *Service) ReconcileFederatedSignIn(ctx context.Context, profile FederatedProfile) (Reconciliation, error) {
	result, err := s.reconcileFederatedSignIn(ctx, profile.normalize())
	s.observe(MethodFederated, err)
	return result, err
}

func (s *Service) reconcileFederatedSignIn(ctx context.Context, profile FederatedProfile) (Reconciliation, error) {
	if err := profile.Validate(); err != nil {
		return Reconciliation{}, validationFailure(err)
	}

	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		result, err := s.reconcileOnce(ctx, profile)
		if errors.Is(err, errReconcileConflict) {
			s.logger.Debug("retrying federated reconciliation",
				zap.String("email", profile.Email),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return result, err
	}
	return Reconciliation{}, s.internal("reconcile", profile.Email, errReconcileConflict)
}

func (s *Service) reconcileOnce(ctx context.Context, profile FederatedProfile) (Reconciliation, error) {
	identity, err := s.store.GetByEmail(ctx, profile.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.createFederated(ctx, profile)
		}
		return Reconciliation{}, s.internal("reconcile", profile.Email, err)
	}

	switch {
	case identity.Provider == types.ProviderCredentials:
		return Reconciliation{}, denied()

	case !identity.Provider.IsSet():
		claimed, err := s.store.ClaimProvider(ctx, identity.ID, profile.Provider)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Reconciliation{}, errReconcileConflict
			}
			return Reconciliation{}, s.internal("reconcile", profile.Email, err)
		}
		s.publish(ctx, types.EventIdentityProviderClaimed, claimed)
		return Reconciliation{Identity: claimed, Claimed: true}, nil

	case identity.Provider == profile.Provider:
		return Reconciliation{Identity: identity}, nil

	default:
		if !s.allowProviderSwitch {
			return Reconciliation{}, providerMismatch(identity.Provider)
		}
		s.logger.Warn("federated sign-in reused identity owned by another provider",
			zap.String("identity_id", identity.ID),
			zap.String("owner_provider", string(identity.Provider)),
			zap.String("signin_provider", string(profile.Provider)),
		)
		if switches, ok := s.observer.(SwitchObserver); ok {
			switches.ObserveProviderSwitch()
		}
		return Reconciliation{Identity: identity}, nil
	}
}

func (s *Service) createFederated(ctx context.Context, profile FederatedProfile) (Reconciliation, error) {
	verifiedAt := s.now()
	firstName := nameOrPlaceholder(profile.GivenName)
	lastName := nameOrPlaceholder(profile.FamilyName)

	displayName := profile.DisplayName
	if displayName == "" {
		displayName = strings.TrimSpace(profile.GivenName + " " + profile.FamilyName)
	}
	if displayName == "" {
		displayName = profile.Email
	}

	created, err := s.store.Create(ctx, types.Identity{
		Email:         profile.Email,
		Provider:      profile.Provider,
		DisplayName:   displayName,
		FirstName:     firstName,
		LastName:      lastName,
		PictureURL:    profile.PictureURL,
		IsActive:      true,
		EmailVerified: &verifiedAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return Reconciliation{}, errReconcileConflict
		}
		return Reconciliation{}, s.internal("reconcile", profile.Email, err)
	}

	s.publish(ctx, types.EventIdentityCreated, created)
	return Reconciliation{Identity: created, Created: true}, nil
}

func nameOrPlaceholder(name string) string {
	if name == "" {
		return PlaceholderName
	}
	return name
}
