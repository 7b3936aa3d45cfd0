package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
)

type memStore struct {
	mu      sync.Mutex
	byEmail map[string]types.Identity

	creates int
	claims  int

	// beforeCreate runs once, before the next Create, to simulate a racing writer.
	beforeCreate func(s *memStore)
	beforeClaim  func(s *memStore)
}

func newMemStore(identities ...types.Identity) *memStore {
	s := &memStore{byEmail: map[string]types.Identity{}}
	for _, identity := range identities {
		if identity.ID == "" {
			identity.ID = uuid.NewString()
		}
		s.byEmail[identity.Email] = identity
	}
	return s
}

func (s *memStore) GetByEmail(_ context.Context, email string) (types.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byEmail[email]
	if !ok {
		return types.Identity{}, store.ErrNotFound
	}
	return identity, nil
}

func (s *memStore) Create(_ context.Context, identity types.Identity) (types.Identity, error) {
	if hook := s.beforeCreate; hook != nil {
		s.beforeCreate = nil
		hook(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[identity.Email]; exists {
		return types.Identity{}, store.ErrAlreadyExists
	}
	identity.ID = uuid.NewString()
	identity.CreatedAt = time.Now()
	identity.UpdatedAt = identity.CreatedAt
	s.byEmail[identity.Email] = identity
	s.creates++
	return identity, nil
}

func (s *memStore) ClaimProvider(_ context.Context, id string, provider types.Provider) (types.Identity, error) {
	if hook := s.beforeClaim; hook != nil {
		s.beforeClaim = nil
		hook(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, identity := range s.byEmail {
		if identity.ID != id || identity.Provider.IsSet() {
			continue
		}
		identity.Provider = provider
		s.byEmail[email] = identity
		s.claims++
		return identity, nil
	}
	return types.Identity{}, store.ErrNotFound
}

func (s *memStore) put(identity types.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	s.byEmail[identity.Email] = identity
}

// fakeHasher avoids bcrypt cost in tests and counts comparisons.
type fakeHasher struct {
	mu       sync.Mutex
	hashes   int
	compares int
}

func (h *fakeHasher) Hash(plaintext string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashes++
	return "hashed:" + plaintext, nil
}

func (h *fakeHasher) Compare(plaintext, hash string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compares++
	return strings.TrimPrefix(hash, "hashed:") == plaintext, nil
}

type memThrottle struct {
	max      int
	failures map[string]int
}

func newMemThrottle(max int) *memThrottle {
	return &memThrottle{max: max, failures: map[string]int{}}
}

func (t *memThrottle) Blocked(_ context.Context, key string) (bool, error) {
	return t.failures[key] >= t.max, nil
}

func (t *memThrottle) RecordFailure(_ context.Context, key string) error {
	t.failures[key]++
	return nil
}

func (t *memThrottle) Reset(_ context.Context, key string) error {
	delete(t.failures, key)
	return nil
}

type recordingEvents struct {
	events []types.IdentityEvent
}

func (r *recordingEvents) PublishIdentityEvent(_ context.Context, event types.IdentityEvent) error {
	r.events = append(r.events, event)
	return nil
}

type recordingObserver struct {
	outcomes map[string][]Kind
}

func (r *recordingObserver) ObserveAttempt(method string, outcome Kind) {
	if r.outcomes == nil {
		r.outcomes = map[string][]Kind{}
	}
	r.outcomes[method] = append(r.outcomes[method], outcome)
}

func strPtr(s string) *string { return &s }
