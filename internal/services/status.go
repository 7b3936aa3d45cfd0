package services

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
)

// StatusRepository defines persistence operations for statuses.
type StatusRepository interface {
	List(ctx context.Context) ([]types.Status, error)
	Get(ctx context.Context, id string) (types.Status, error)
	GetByName(ctx context.Context, typeID int, name string) (types.Status, error)
	Create(ctx context.Context, status types.Status) (types.Status, error)
	Update(ctx context.Context, status types.Status) (types.Status, error)
	Delete(ctx context.Context, id string) error
}

// StatusService encapsulates status use-cases.
type StatusService struct {
	repo StatusRepository
}

func NewStatusService(repo StatusRepository) *StatusService {
	return &StatusService{repo: repo}
}

// StatusInput is the writable part of a status.
type StatusInput struct {
	StatusName  string `json:"status_name"`
	TypeID      *int   `json:"typeid"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isactive"`
}

func (in StatusInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.StatusName, validation.Required.Error("Status name is required")),
		validation.Field(&in.TypeID,
			validation.NotNil.Error("Type is required"),
			validation.Min(1).Error("Type is required"),
		),
	)
}

// List returns statuses, newest first.
func (s *StatusService) List(ctx context.Context) ([]types.Status, error) {
	return s.repo.List(ctx)
}

func (s *StatusService) Get(ctx context.Context, id string) (types.Status, error) {
	return s.repo.Get(ctx, id)
}

func (s *StatusService) Create(ctx context.Context, in StatusInput) (types.Status, error) {
	in = in.normalize()
	if err := s.check(ctx, "", in); err != nil {
		return types.Status{}, err
	}

	status := types.Status{
		StatusName:  in.StatusName,
		TypeID:      *in.TypeID,
		Description: in.Description,
		IsActive:    true,
	}
	if in.IsActive != nil {
		status.IsActive = *in.IsActive
	}

	created, err := s.repo.Create(ctx, status)
	if errors.Is(err, store.ErrAlreadyExists) {
		return types.Status{}, statusConflict()
	}
	return created, err
}

func (s *StatusService) Update(ctx context.Context, id string, in StatusInput) (types.Status, error) {
	in = in.normalize()
	status, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Status{}, err
	}
	if err := s.check(ctx, id, in); err != nil {
		return types.Status{}, err
	}

	status.StatusName = in.StatusName
	status.TypeID = *in.TypeID
	status.Description = in.Description
	if in.IsActive != nil {
		status.IsActive = *in.IsActive
	}

	updated, err := s.repo.Update(ctx, status)
	if errors.Is(err, store.ErrAlreadyExists) {
		return types.Status{}, statusConflict()
	}
	return updated, err
}

func (s *StatusService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (in StatusInput) normalize() StatusInput {
	in.StatusName = strings.TrimSpace(in.StatusName)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// check validates in; status names are unique within a type.
func (s *StatusService) check(ctx context.Context, id string, in StatusInput) error {
	if err := in.Validate(); err != nil {
		return validationError(err)
	}
	existing, err := s.repo.GetByName(ctx, *in.TypeID, in.StatusName)
	switch {
	case err == nil && existing.ID != id:
		return statusConflict()
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}

func statusConflict() *ConflictError {
	return &ConflictError{
		Message: "A status with this name already exists for this type.",
		Fields:  map[string]string{"status_name": "Status name must be unique."},
	}
}
