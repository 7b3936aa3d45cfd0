package services

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopadmin/apiserver/internal/store"
	"github.com/shopadmin/apiserver/types"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]types.Category, error)
	Get(ctx context.Context, id string) (types.Category, error)
	GetByName(ctx context.Context, name string) (types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	Delete(ctx context.Context, id string) error
}

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repo CategoryRepository
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	CategoryName     string `json:"category_name"`
	Description      string `json:"description"`
	ParentCategoryID string `json:"parent_category_id"`
	IsActive         *bool  `json:"isactive"`
}

func (in CategoryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CategoryName, validation.Required.Error("Category name is required")),
	)
}

// List returns categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]types.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id string) (types.Category, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a category. New categories are active unless stated otherwise.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (types.Category, error) {
	in = in.normalize()
	if err := s.check(ctx, "", in); err != nil {
		return types.Category{}, err
	}

	category := types.Category{
		CategoryName:     in.CategoryName,
		Description:      in.Description,
		ParentCategoryID: in.ParentCategoryID,
		IsActive:         true,
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	created, err := s.repo.Create(ctx, category)
	if errors.Is(err, store.ErrAlreadyExists) {
		return types.Category{}, categoryConflict()
	}
	return created, err
}

func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (types.Category, error) {
	in = in.normalize()
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Category{}, err
	}
	if err := s.check(ctx, id, in); err != nil {
		return types.Category{}, err
	}

	category.CategoryName = in.CategoryName
	category.Description = in.Description
	category.ParentCategoryID = in.ParentCategoryID
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	updated, err := s.repo.Update(ctx, category)
	if errors.Is(err, store.ErrAlreadyExists) {
		return types.Category{}, categoryConflict()
	}
	return updated, err
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (in CategoryInput) normalize() CategoryInput {
	in.CategoryName = strings.TrimSpace(in.CategoryName)
	in.Description = strings.TrimSpace(in.Description)
	in.ParentCategoryID = strings.TrimSpace(in.ParentCategoryID)
	return in
}

// check validates in for the category id (empty on create): the name must be
// unique and the parent must exist and differ from the category itself.
func (s *CategoryService) check(ctx context.Context, id string, in CategoryInput) error {
	if err := in.Validate(); err != nil {
		return validationError(err)
	}

	existing, err := s.repo.GetByName(ctx, in.CategoryName)
	switch {
	case err == nil && existing.ID != id:
		return categoryConflict()
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	if in.ParentCategoryID == "" {
		return nil
	}
	if in.ParentCategoryID == id {
		return parentError("A category cannot be its own parent.")
	}
	if _, err := s.repo.Get(ctx, in.ParentCategoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return parentError("Parent category does not exist.")
		}
		return err
	}
	return nil
}

func categoryConflict() *ConflictError {
	return &ConflictError{
		Message: "A category with this name already exists.",
		Fields:  map[string]string{"category_name": "Category name must be unique."},
	}
}

func parentError(message string) *ValidationError {
	return &ValidationError{
		Message: msgValidationFailed,
		Fields:  map[string]string{"parent_category_id": message},
	}
}
