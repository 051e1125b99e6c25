package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// URLInput is a bookmark to save. UserID comes from the session, never
// from the request body.
type URLInput struct {
	UserID      string `json:"userId" validate:"required,uuid4"`
	GenreID     string `json:"genreId" validate:"required,uuid4"`
	Title       string `json:"title" validate:"required,max=200"`
	URL         string `json:"url" validate:"required,http_url"`
	Description string `json:"description" validate:"max=500"`
	FaviconURL  string `json:"faviconUrl" validate:"omitempty,http_url"`
}

func (in *URLInput) normalize() {
	in.GenreID = strings.TrimSpace(in.GenreID)
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Description = strings.TrimSpace(in.Description)
	in.FaviconURL = strings.TrimSpace(in.FaviconURL)
}

type URLService struct {
	repo   repository.URLRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewURLService(repo repository.URLRepository, logger *slog.Logger) *URLService {
	return &URLService{repo: repo, logger: logger, now: time.Now}
}

// Create saves a bookmark into a genre. Saving the same URL twice for one
// user fails with a duplicate_url conflict.
func (s *URLService) Create(ctx context.Context, in URLInput) (*model.URL, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	u, err := s.repo.CreateURL(ctx, repository.CreateURLParams{
		UserID:      in.UserID,
		GenreID:     in.GenreID,
		Title:       in.Title,
		URL:         in.URL,
		Description: in.Description,
		FaviconURL:  in.FaviconURL,
	})
	if err != nil {
		return nil, fail(s.logger, "failed to create url", err,
			slog.String("userID", in.UserID), slog.String("genreID", in.GenreID))
	}

	s.logger.Info("url created",
		slog.String("id", u.ID),
		slog.String("genreID", u.GenreID),
		slog.String("categoryID", u.CategoryID),
	)
	return u, nil
}

// ListByGenre returns newest bookmarks first. A deleted genre is
// apperror.ErrNotFound.
func (s *URLService) ListByGenre(ctx context.Context, genreID, userID string) ([]model.URL, error) {
	urls, err := s.repo.ListURLs(ctx, genreID, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to list urls", err, slog.String("genreID", genreID))
	}
	return urls, nil
}

// Delete removes a bookmark and reports where it lived.
func (s *URLService) Delete(ctx context.Context, id, userID string) (*model.URLDeletion, error) {
	del, err := s.repo.DeleteURL(ctx, id, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to delete url", err, slog.String("id", id))
	}
	s.logger.Info("url deleted",
		slog.String("id", id),
		slog.String("genreID", del.GenreID),
		slog.String("categoryID", del.CategoryID),
	)
	return del, nil
}

// RecordVisit bumps the view counter when the user opens a bookmark.
func (s *URLService) RecordVisit(ctx context.Context, id, userID string) (*model.URL, error) {
	u, err := s.repo.RecordVisit(ctx, id, userID, s.now())
	if err != nil {
		return nil, fail(s.logger, "failed to record visit", err, slog.String("id", id))
	}
	return u, nil
}
