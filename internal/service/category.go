package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// CategoryInput is the user-editable part of a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,rgbcolor"`
	Icon        string `json:"icon" validate:"max=50"`
}

func (in *CategoryInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	in.Icon = strings.TrimSpace(in.Icon)
}

func (in CategoryInput) folder() repository.FolderInput {
	return repository.FolderInput{Name: in.Name, Description: in.Description, Color: in.Color, Icon: in.Icon}
}

type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

func (s *CategoryService) List(ctx context.Context, userID string) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to list categories", err, slog.String("userID", userID))
	}
	return categories, nil
}

func (s *CategoryService) GetByID(ctx context.Context, id, userID string) (*model.Category, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "category id is required")
	}
	c, err := s.repo.GetCategory(ctx, id, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to get category", err, slog.String("id", id))
	}
	return c, nil
}

// Create validates in, rejects a name the user already uses and appends
// the category after the user's last one.
//
// The NameTaken lookup gives a friendly error in the common case; the
// unique index in storage still catches two creates racing each other.
func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (*model.Category, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	taken, err := s.repo.CategoryNameTaken(ctx, userID, in.Name, "")
	if err != nil {
		return nil, fail(s.logger, "failed to check category name", err, slog.String("userID", userID))
	}
	if taken {
		return nil, apperror.DuplicateName("category", in.Name)
	}

	c, err := s.repo.CreateCategory(ctx, userID, in.folder())
	if err != nil {
		return nil, fail(s.logger, "failed to create category", err,
			slog.String("userID", userID), slog.String("name", in.Name))
	}

	s.logger.Info("category created",
		slog.String("id", c.ID),
		slog.String("userID", userID),
		slog.Int("sortOrder", c.SortOrder),
	)
	return c, nil
}

// Update renames or restyles a category under the same rules as Create.
func (s *CategoryService) Update(ctx context.Context, id, userID string, in CategoryInput) (*model.Category, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	taken, err := s.repo.CategoryNameTaken(ctx, userID, in.Name, id)
	if err != nil {
		return nil, fail(s.logger, "failed to check category name", err, slog.String("userID", userID))
	}
	if taken {
		return nil, apperror.DuplicateName("category", in.Name)
	}

	c, err := s.repo.UpdateCategory(ctx, id, userID, in.folder())
	if err != nil {
		return nil, fail(s.logger, "failed to update category", err, slog.String("id", id))
	}
	return c, nil
}

// DeletionStats reports what Delete would remove, for the confirmation
// dialog.
func (s *CategoryService) DeletionStats(ctx context.Context, id, userID string) (*model.CategoryDeletionStats, error) {
	stats, err := s.repo.CategoryDeletionStats(ctx, id, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to compute category deletion stats", err, slog.String("id", id))
	}
	return stats, nil
}

// Delete removes the category with its genres and bookmarks. It returns the
// deleted id so clients can drop it from their caches.
func (s *CategoryService) Delete(ctx context.Context, id, userID string) (string, error) {
	deleted, err := s.repo.DeleteCategory(ctx, id, userID)
	if err != nil {
		return "", fail(s.logger, "failed to delete category", err,
			slog.String("id", id), slog.String("userID", userID))
	}
	s.logger.Info("category deleted", slog.String("id", deleted), slog.String("userID", userID))
	return deleted, nil
}
