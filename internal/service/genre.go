package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// GenreInput is the user-editable part of a genre. CategoryID is only read
// on create; a genre never moves between categories.
type GenreInput struct {
	CategoryID  string `json:"categoryId" validate:"required"`
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
	Color       string `json:"color" validate:"omitempty,rgbcolor"`
	Icon        string `json:"icon" validate:"max=50"`
}

func (in *GenreInput) normalize() {
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	in.Icon = strings.TrimSpace(in.Icon)
}

func (in GenreInput) folder() repository.FolderInput {
	return repository.FolderInput{Name: in.Name, Description: in.Description, Color: in.Color, Icon: in.Icon}
}

type GenreService struct {
	repo   repository.GenreRepository
	logger *slog.Logger
}

func NewGenreService(repo repository.GenreRepository, logger *slog.Logger) *GenreService {
	return &GenreService{repo: repo, logger: logger}
}

// ListByCategory returns apperror.ErrNotFound when the category is not the
// caller's.
func (s *GenreService) ListByCategory(ctx context.Context, categoryID, userID string) ([]model.Genre, error) {
	genres, err := s.repo.ListGenres(ctx, categoryID, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to list genres", err, slog.String("categoryID", categoryID))
	}
	return genres, nil
}

func (s *GenreService) GetByID(ctx context.Context, id, userID string) (*model.Genre, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "genre id is required")
	}
	g, err := s.repo.GetGenre(ctx, id, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to get genre", err, slog.String("id", id))
	}
	return g, nil
}

// Create adds a genre to one of the caller's categories. Names only have to
// be unique within that category.
func (s *GenreService) Create(ctx context.Context, userID string, in GenreInput) (*model.Genre, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	taken, err := s.repo.GenreNameTaken(ctx, userID, in.CategoryID, in.Name, "")
	if err != nil {
		return nil, fail(s.logger, "failed to check genre name", err, slog.String("userID", userID))
	}
	if taken {
		return nil, apperror.DuplicateName("genre", in.Name)
	}

	g, err := s.repo.CreateGenre(ctx, userID, in.CategoryID, in.folder())
	if err != nil {
		return nil, fail(s.logger, "failed to create genre", err,
			slog.String("userID", userID), slog.String("categoryID", in.CategoryID))
	}

	s.logger.Info("genre created",
		slog.String("id", g.ID),
		slog.String("categoryID", g.CategoryID),
		slog.Int("sortOrder", g.SortOrder),
	)
	return g, nil
}

func (s *GenreService) Update(ctx context.Context, id, userID string, in GenreInput) (*model.Genre, error) {
	in.normalize()
	if err := validateStruct(in, "CategoryID"); err != nil {
		return nil, err
	}

	current, err := s.repo.GetGenre(ctx, id, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to get genre", err, slog.String("id", id))
	}

	taken, err := s.repo.GenreNameTaken(ctx, userID, current.CategoryID, in.Name, id)
	if err != nil {
		return nil, fail(s.logger, "failed to check genre name", err, slog.String("userID", userID))
	}
	if taken {
		return nil, apperror.DuplicateName("genre", in.Name)
	}

	g, err := s.repo.UpdateGenre(ctx, id, userID, in.folder())
	if err != nil {
		return nil, fail(s.logger, "failed to update genre", err, slog.String("id", id))
	}
	return g, nil
}

func (s *GenreService) DeletionStats(ctx context.Context, id, userID string) (*model.GenreDeletionStats, error) {
	stats, err := s.repo.GenreDeletionStats(ctx, id, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to compute genre deletion stats", err, slog.String("id", id))
	}
	return stats, nil
}

// Delete removes the genre and the bookmarks filed under it.
func (s *GenreService) Delete(ctx context.Context, id, userID string) (string, error) {
	deleted, err := s.repo.DeleteGenre(ctx, id, userID)
	if err != nil {
		return "", fail(s.logger, "failed to delete genre", err,
			slog.String("id", id), slog.String("userID", userID))
	}
	s.logger.Info("genre deleted", slog.String("id", deleted), slog.String("userID", userID))
	return deleted, nil
}
