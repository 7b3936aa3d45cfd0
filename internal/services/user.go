package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
	"go.uber.org/zap"
)

// UserRepository defines persistence operations for identities.
type UserRepository interface {
	List(ctx context.Context) ([]types.Identity, error)
	GetByID(ctx context.Context, id string) (types.Identity, error)
	GetByEmail(ctx context.Context, email string) (types.Identity, error)
	Update(ctx context.Context, identity types.Identity) (types.Identity, error)
	Delete(ctx context.Context, id string) error
}

// Registrar creates credentials identities on behalf of an administrator.
type Registrar interface {
	RegisterByAdmin(ctx context.Context, in auth.SignUpInput) (types.Identity, error)
}

// PictureStore keeps profile pictures in object storage.
type PictureStore interface {
	Upload(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, pictureURL string) error
}

// UserService encapsulates the administrative user use-cases.
type UserService struct {
	repo      UserRepository
	registrar Registrar
	hasher    auth.PasswordHasher
	pictures  PictureStore
	logger    *zap.Logger
}

// NewUserService wires the user use-cases. pictures may be nil when no
// storage backend is configured.
func NewUserService(repo UserRepository, registrar Registrar, hasher auth.PasswordHasher, pictures PictureStore, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:      repo,
		registrar: registrar,
		hasher:    hasher,
		pictures:  pictures,
		logger:    logger,
	}
}

// List returns every identity ordered by last name, then first name.
func (s *UserService) List(ctx context.Context) ([]types.Identity, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (types.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

// Add creates a credentials identity. Unlike self-service sign-up, the
// administrator decides the admin flag.
func (s *UserService) Add(ctx context.Context, in auth.SignUpInput) (types.Identity, error) {
	return s.registrar.RegisterByAdmin(ctx, in)
}

// UpdateUserInput is the editable part of an identity. Nil flags and an
// empty password leave the stored values alone.
type UpdateUserInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsAdmin   *bool  `json:"isadmin"`
	IsActive  *bool  `json:"isactive"`
}

func (in UpdateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required.Error("First name is required")),
		validation.Field(&in.LastName, validation.Required.Error("Last name is required")),
		validation.Field(&in.Email,
			validation.Required.Error("Email address is required"),
			is.Email.Error("Invalid email address"),
		),
	)
}

// Update applies in to the identity. canGrant controls whether the admin and
// active flags may change; it is false when users edit their own profile.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput, canGrant bool) (types.Identity, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return types.Identity{}, validationError(err)
	}
	if in.Password != "" {
		if err := auth.ValidatePassword(in.Password); err != nil {
			var authErr *auth.Error
			if errors.As(err, &authErr) {
				return types.Identity{}, &ValidationError{Message: authErr.Message, Fields: authErr.Fields}
			}
			return types.Identity{}, err
		}
	}

	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Identity{}, err
	}

	if in.Email != identity.Email {
		other, err := s.repo.GetByEmail(ctx, in.Email)
		switch {
		case err == nil && other.ID != identity.ID:
			return types.Identity{}, emailConflict(in.Email)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return types.Identity{}, err
		}
	}

	identity.FirstName = in.FirstName
	identity.LastName = in.LastName
	identity.DisplayName = in.FirstName + " " + in.LastName
	identity.Email = in.Email
	if canGrant {
		if in.IsAdmin != nil {
			identity.IsAdmin = *in.IsAdmin
		}
		if in.IsActive != nil {
			identity.IsActive = *in.IsActive
		}
	}
	if in.Password != "" {
		hashed, err := s.hasher.Hash(in.Password)
		if err != nil {
			return types.Identity{}, err
		}
		identity.PasswordHash = hashed
	}

	updated, err := s.repo.Update(ctx, identity)
	if errors.Is(err, store.ErrAlreadyExists) {
		return types.Identity{}, emailConflict(in.Email)
	}
	return updated, err
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SetPicture uploads a new profile picture and records its URL. The previous
// picture is removed on a best-effort basis.
func (s *UserService) SetPicture(ctx context.Context, id string, r io.Reader, size int64, contentType string) (types.Identity, error) {
	if s.pictures == nil {
		return types.Identity{}, ErrPicturesDisabled
	}

	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Identity{}, err
	}

	url, err := s.pictures.Upload(ctx, id, r, size, contentType)
	if err != nil {
		return types.Identity{}, err
	}

	previous := identity.PictureURL
	identity.PictureURL = url
	updated, err := s.repo.Update(ctx, identity)
	if err != nil {
		return types.Identity{}, err
	}

	if previous != "" {
		if err := s.pictures.Remove(ctx, previous); err != nil {
			s.logger.Warn("remove previous picture failed",
				zap.String("user_id", id),
				zap.String("url", previous),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

func emailConflict(email string) *ConflictError {
	return &ConflictError{
		Message: fmt.Sprintf("A user with this email %s already exists.", email),
		Fields:  map[string]string{"email": "Email must be unique."},
	}
}
