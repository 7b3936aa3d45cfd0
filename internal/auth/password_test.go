package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopadmin/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var authErr *Error
	require.True(t, errors.As(err, &authErr), "expected *auth.Error, got %v", err)
	require.Equal(t, kind, authErr.Kind)
	return authErr
}

func TestRegisterWithPasswordCreatesCredentialsIdentity(t *testing.T) {
	st := newMemStore()
	hasher := &fakeHasher{}
	events := &recordingEvents{}
	svc := NewService(st, hasher, WithEvents(events))

	identity, err := svc.RegisterWithPassword(context.Background(), SignUpInput{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "ann@example.com",
		Password:  "secret1",
		IsAdmin:   true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, types.ProviderCredentials, identity.Provider)
	assert.Equal(t, "Ann Lee", identity.DisplayName)
	assert.False(t, identity.IsAdmin, "self-service sign-up must not grant admin")
	assert.True(t, identity.IsActive)
	assert.Equal(t, "hashed:secret1", identity.PasswordHash)
	require.Len(t, events.events, 1)
	assert.Equal(t, types.EventIdentityCreated, events.events[0].Type)

	_, err = svc.RegisterWithPassword(context.Background(), SignUpInput{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "ann@example.com",
		Password:  "secret1",
	})
	authErr := requireKind(t, err, KindAlreadyExists)
	assert.Contains(t, authErr.Message, "ann@example.com")
	assert.Contains(t, authErr.Fields, "email")
	assert.Equal(t, 1, st.creates)
}

func TestRegisterByAdminHonoursAdminFlag(t *testing.T) {
	svc := NewService(newMemStore(), &fakeHasher{})

	identity, err := svc.RegisterByAdmin(context.Background(), SignUpInput{
		FirstName: "Root",
		LastName:  "User",
		Email:     "root@example.com",
		Password:  "secret1",
		IsAdmin:   true,
	})
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin)
}

func TestRegisterRejectsExistingFederatedEmail(t *testing.T) {
	st := newMemStore(types.Identity{Email: "gina@example.com", Provider: types.ProviderGoogle})
	hasher := &fakeHasher{}
	svc := NewService(st, hasher)

	_, err := svc.RegisterWithPassword(context.Background(), SignUpInput{
		FirstName: "Gina",
		LastName:  "Ray",
		Email:     "gina@example.com",
		Password:  "secret1",
	})
	requireKind(t, err, KindAlreadyExists)
	assert.Zero(t, hasher.hashes)
}

func TestRegisterTreatsUniqueViolationAsAlreadyExists(t *testing.T) {
	st := newMemStore()
	st.beforeCreate = func(s *memStore) {
		s.put(types.Identity{Email: "race@example.com", Provider: types.ProviderCredentials})
	}
	svc := NewService(st, &fakeHasher{})

	_, err := svc.RegisterWithPassword(context.Background(), SignUpInput{
		FirstName: "Race",
		LastName:  "Condition",
		Email:     "race@example.com",
		Password:  "secret1",
	})
	requireKind(t, err, KindAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemStore(), &fakeHasher{})

	_, err := svc.RegisterWithPassword(context.Background(), SignUpInput{
		Email:    "not-an-email",
		Password: "abc",
	})
	authErr := requireKind(t, err, KindValidationFailed)
	assert.Equal(t, map[string]string{
		"first_name": "First name is required",
		"last_name":  "Last name is required",
		"email":      "Invalid email address",
		"password":   "Password must be at least 6 characters",
	}, authErr.Fields)

	_, err = svc.RegisterWithPassword(context.Background(), SignUpInput{
		FirstName: "A",
		LastName:  "B",
	})
	authErr = requireKind(t, err, KindValidationFailed)
	assert.Equal(t, "Email address is required", authErr.Fields["email"], "first violation wins")
	assert.Equal(t, "Password is required", authErr.Fields["password"])
}

func TestAuthenticateWithPassword(t *testing.T) {
	st := newMemStore(types.Identity{
		ID:           "user-1",
		Email:        "erin@example.com",
		PasswordHash: "hashed:secret1",
		Provider:     types.ProviderCredentials,
		DisplayName:  "Erin Moss",
		FirstName:    "Erin",
		LastName:     "Moss",
		IsAdmin:      true,
		IsActive:     true,
	})
	svc := NewService(st, &fakeHasher{})

	claims, err := svc.AuthenticateWithPassword(context.Background(), SignInInput{
		Email:    "erin@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, types.Claims{
		SubjectID:   "user-1",
		IsAdmin:     true,
		DisplayName: "Erin Moss",
		FirstName:   "Erin",
		LastName:    "Moss",
	}, claims)

	_, err = svc.AuthenticateWithPassword(context.Background(), SignInInput{
		Email:    "erin@example.com",
		Password: "wrongpw",
	})
	requireKind(t, err, KindInvalidCredentials)
}

func TestAuthenticateUnknownEmailIsInvalidCredentials(t *testing.T) {
	hasher := &fakeHasher{}
	svc := NewService(newMemStore(), hasher)

	_, err := svc.AuthenticateWithPassword(context.Background(), SignInInput{
		Email:    "dave@example.com",
		Password: "wrongpw",
	})
	authErr := requireKind(t, err, KindInvalidCredentials)
	assert.Equal(t, msgInvalidCredentials, authErr.Message)
	assert.Equal(t, 1, hasher.compares, "unknown emails still pay for a comparison")
}

func TestAuthenticateProviderMismatchSkipsPasswordCheck(t *testing.T) {
	st := newMemStore(types.Identity{
		Email:        "frank@example.com",
		Provider:     types.ProviderGoogle,
		PasswordHash: "hashed:secret1",
	})
	hasher := &fakeHasher{}
	svc := NewService(st, hasher)

	for _, password := range []string{"secret1", "wrongpw", "another-one"} {
		_, err := svc.AuthenticateWithPassword(context.Background(), SignInInput{
			Email:    "frank@example.com",
			Password: password,
		})
		authErr := requireKind(t, err, KindProviderMismatch)
		assert.Equal(t, types.ProviderGoogle, authErr.Provider)
		assert.Contains(t, authErr.Message, "google")
	}
	assert.Zero(t, hasher.compares, "hasher must never be invoked on provider mismatch")
}

func TestAuthenticateWithoutPasswordHash(t *testing.T) {
	st := newMemStore(types.Identity{Email: "nopw@example.com"})
	hasher := &fakeHasher{}
	svc := NewService(st, hasher)

	_, err := svc.AuthenticateWithPassword(context.Background(), SignInInput{
		Email:    "nopw@example.com",
		Password: "secret1",
	})
	requireKind(t, err, KindInvalidCredentials)
	assert.Equal(t, 1, hasher.compares)
}

func TestAuthenticateDecoyHashIsPreparedOnce(t *testing.T) {
	hasher := &fakeHasher{}
	svc := NewService(newMemStore(), hasher)
	ctx := context.Background()

	for _, email := range []string{"x1@example.com", "x2@example.com", "x3@example.com"} {
		_, err := svc.AuthenticateWithPassword(ctx, SignInInput{Email: email, Password: "secret1"})
		requireKind(t, err, KindInvalidCredentials)
	}
	assert.Equal(t, 1, hasher.hashes)
	assert.Equal(t, 3, hasher.compares)
}

func TestAuthenticateUnknownEmailCostsLikeWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("runs bcrypt at production cost")
	}
	st := newMemStore()
	hasher := NewBcryptHasher()
	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)
	st.put(types.Identity{Email: "real@example.com", Provider: types.ProviderCredentials, PasswordHash: hash})
	svc := NewService(st, hasher)
	ctx := context.Background()

	// Warm the decoy hash so only comparisons are timed.
	_, _ = svc.AuthenticateWithPassword(ctx, SignInInput{Email: "ghost@example.com", Password: "wrongpw"})

	start := time.Now()
	_, err = svc.AuthenticateWithPassword(ctx, SignInInput{Email: "real@example.com", Password: "wrongpw"})
	requireKind(t, err, KindInvalidCredentials)
	wrongPassword := time.Since(start)

	start = time.Now()
	_, err = svc.AuthenticateWithPassword(ctx, SignInInput{Email: "ghost@example.com", Password: "wrongpw"})
	requireKind(t, err, KindInvalidCredentials)
	unknownEmail := time.Since(start)

	assert.Greater(t, unknownEmail, wrongPassword/4)
}

func TestAuthenticateUnsetProviderUsesPassword(t *testing.T) {
	st := newMemStore(types.Identity{
		ID:           "seed-1",
		Email:        "seed@example.com",
		PasswordHash: "hashed:secret1",
	})
	svc := NewService(st, &fakeHasher{})

	claims, err := svc.AuthenticateWithPassword(context.Background(), SignInInput{
		Email:    "seed@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "seed-1", claims.SubjectID)
}

func TestAuthenticateThrottlesRepeatedFailures(t *testing.T) {
	st := newMemStore(types.Identity{
		Email:        "gus@example.com",
		Provider:     types.ProviderCredentials,
		PasswordHash: "hashed:secret1",
	})
	hasher := &fakeHasher{}
	throttle := newMemThrottle(2)
	observer := &recordingObserver{}
	svc := NewService(st, hasher, WithThrottle(throttle), WithObserver(observer))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.AuthenticateWithPassword(ctx, SignInInput{Email: "gus@example.com", Password: "wrongpw"})
		requireKind(t, err, KindInvalidCredentials)
	}

	_, err := svc.AuthenticateWithPassword(ctx, SignInInput{Email: "gus@example.com", Password: "secret1"})
	requireKind(t, err, KindRateLimited)
	assert.Equal(t, 2, hasher.compares)

	require.NoError(t, throttle.Reset(ctx, "gus@example.com"))
	_, err = svc.AuthenticateWithPassword(ctx, SignInInput{Email: "gus@example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, []Kind{
		KindInvalidCredentials,
		KindInvalidCredentials,
		KindRateLimited,
		OutcomeSuccess,
	}, observer.outcomes[MethodPassword])
}

func TestAuthenticateValidation(t *testing.T) {
	svc := NewService(newMemStore(), &fakeHasher{})

	_, err := svc.AuthenticateWithPassword(context.Background(), SignInInput{Email: "", Password: ""})
	authErr := requireKind(t, err, KindValidationFailed)
	assert.Equal(t, "Email address is required", authErr.Fields["email"])
	assert.Equal(t, "Password is required", authErr.Fields["password"])
}

type failingStore struct{ memStore }

func (f *failingStore) GetByEmail(context.Context, string) (types.Identity, error) {
	return types.Identity{}, errors.New("connection refused")
}

func TestAuthenticateStoreFailureIsInternal(t *testing.T) {
	svc := NewService(&failingStore{}, &fakeHasher{})

	_, err := svc.AuthenticateWithPassword(context.Background(), SignInInput{
		Email:    "hal@example.com",
		Password: "secret1",
	})
	authErr := requireKind(t, err, KindInternal)
	assert.Equal(t, msgInternal, authErr.Message)
	assert.NotContains(t, authErr.Message, "connection refused")
	assert.ErrorContains(t, authErr.Unwrap(), "connection refused")
}
