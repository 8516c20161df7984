package service

import (
	"context"

	"blockhub/internal/models"
	"blockhub/internal/repository"
	"blockhub/internal/slug"
	"blockhub/internal/validation"
)

// CategoryService manages the category taxonomy.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// CategoryInput carries the writable category fields.
type CategoryInput struct {
	Name        string
	Description string
}

// CreateCategory validates the input, derives the category slug from its
// name, and persists the row.
func (s *CategoryService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if errs := validation.ValidateCategory(in.Name); errs != nil {
		return nil, models.NewFieldValidationError(errs)
	}
	catSlug := slug.Generate(in.Name)
	if catSlug == "" {
		return nil, models.NewFieldValidationError(map[string]string{
			"name": "name must contain at least one alphanumeric character",
		})
	}

	category := &models.Category{
		Name:        in.Name,
		Slug:        catSlug,
		Description: in.Description,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory renames a category, re-deriving its slug.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if errs := validation.ValidateCategory(in.Name); errs != nil {
		return nil, models.NewFieldValidationError(errs)
	}
	catSlug := slug.Generate(in.Name)
	if catSlug == "" {
		return nil, models.NewFieldValidationError(map[string]string{
			"name": "name must contain at least one alphanumeric character",
		})
	}

	category.Name = in.Name
	category.Slug = catSlug
	category.Description = in.Description
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory loads one category by ID.
func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// ListCategories returns every category, name order.
func (s *CategoryService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.categoryRepo.List(ctx)
}

// DeleteCategory removes a category.
func (s *CategoryService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.categoryRepo.Delete(ctx, id)
}
