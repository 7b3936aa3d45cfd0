package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
)

type memUsers struct {
	byID    map[string]types.Identity
	updates int
}

func newMemUsers(identities ...types.Identity) *memUsers {
	m := &memUsers{byID: map[string]types.Identity{}}
	for _, identity := range identities {
		m.byID[identity.ID] = identity
	}
	return m
}

func (m *memUsers) List(context.Context) ([]types.Identity, error) {
	out := make([]types.Identity, 0, len(m.byID))
	for _, identity := range m.byID {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (types.Identity, error) {
	identity, ok := m.byID[id]
	if !ok {
		return types.Identity{}, store.ErrNotFound
	}
	return identity, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.Identity, error) {
	for _, identity := range m.byID {
		if identity.Email == email {
			return identity, nil
		}
	}
	return types.Identity{}, store.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, identity types.Identity) (types.Identity, error) {
	if _, ok := m.byID[identity.ID]; !ok {
		return types.Identity{}, store.ErrNotFound
	}
	identity.UpdatedAt = time.Now()
	m.byID[identity.ID] = identity
	m.updates++
	return identity, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type fakeRegistrar struct {
	inputs []auth.SignUpInput
}

func (f *fakeRegistrar) RegisterByAdmin(_ context.Context, in auth.SignUpInput) (types.Identity, error) {
	f.inputs = append(f.inputs, in)
	return types.Identity{ID: uuid.NewString(), Email: in.Email, IsAdmin: in.IsAdmin}, nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

func (prefixHasher) Compare(plaintext, hash string) (bool, error) {
	return strings.TrimPrefix(hash, "hashed:") == plaintext, nil
}

type memPictures struct {
	uploads map[string][]byte
	removed []string
}

func (m *memPictures) Upload(_ context.Context, userID string, r io.Reader, _ int64, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	url := "https://cdn.example.com/pictures/" + userID + "/" + uuid.NewString() + ".png"
	if m.uploads == nil {
		m.uploads = map[string][]byte{}
	}
	m.uploads[url] = buf.Bytes()
	return url, nil
}

func (m *memPictures) Remove(_ context.Context, url string) error {
	m.removed = append(m.removed, url)
	return nil
}

type memCategories struct {
	byID map[string]types.Category
}

func newMemCategories(categories ...types.Category) *memCategories {
	m := &memCategories{byID: map[string]types.Category{}}
	for _, c := range categories {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memCategories) List(context.Context) ([]types.Category, error) {
	out := make([]types.Category, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (m *memCategories) Get(_ context.Context, id string) (types.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memCategories) GetByName(_ context.Context, name string) (types.Category, error) {
	for _, c := range m.byID {
		if c.CategoryName == name {
			return c, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (m *memCategories) Create(_ context.Context, c types.Category) (types.Category, error) {
	c.ID = uuid.NewString()
	m.byID[c.ID] = c
	return c, nil
}

func (m *memCategories) Update(_ context.Context, c types.Category) (types.Category, error) {
	m.byID[c.ID] = c
	return c, nil
}

func (m *memCategories) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memStatuses struct {
	byID map[string]types.Status
}

func newMemStatuses(statuses ...types.Status) *memStatuses {
	m := &memStatuses{byID: map[string]types.Status{}}
	for _, s := range statuses {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memStatuses) List(context.Context) ([]types.Status, error) {
	out := make([]types.Status, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStatuses) Get(_ context.Context, id string) (types.Status, error) {
	s, ok := m.byID[id]
	if !ok {
		return types.Status{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memStatuses) GetByName(_ context.Context, typeID int, name string) (types.Status, error) {
	for _, s := range m.byID {
		if s.TypeID == typeID && s.StatusName == name {
			return s, nil
		}
	}
	return types.Status{}, store.ErrNotFound
}

func (m *memStatuses) Create(_ context.Context, s types.Status) (types.Status, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now()
	m.byID[s.ID] = s
	return s, nil
}

func (m *memStatuses) Update(_ context.Context, s types.Status) (types.Status, error) {
	m.byID[s.ID] = s
	return s, nil
}

func (m *memStatuses) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
