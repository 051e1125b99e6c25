// Package repository declares the storage contracts the services depend on.
//
// Implementations translate storage failures into apperror values:
// missing or foreign rows become ErrNotFound, uniqueness violations become
// ErrConflict, and cascading deletes report ErrDeletionFailed. Every method
// that reads or writes user data is scoped by userID.
package repository

import (
	"context"
	"time"

	"github.com/sakif/linkshelf/internal/model"
)

// UpsertProviderParams is the input to UserRepository.UpsertUserProvider.
// Nil token fields are stored as NULL on insert; on conflict a nil
// RefreshToken keeps the stored one.
type UpsertProviderParams struct {
	UserID            string
	Provider          string
	ProviderAccountID string
	AccessToken       *string
	RefreshToken      *string
	ExpiresAt         *int64
}

type UserRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, email string, name, avatarURL *string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, name, avatarURL *string) (*model.User, error)
	UpdateUserEmail(ctx context.Context, id, email string) (*model.User, error)
	FindProviderLink(ctx context.Context, provider, providerAccountID string) (*model.UserProvider, error)
	UpsertUserProvider(ctx context.Context, p UpsertProviderParams) (*model.UserProvider, error)
	GetUserWithProvider(ctx context.Context, email, provider string) (*model.UserWithProvider, error)
	UpdateProviderTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *int64) error
}

// FolderInput carries the user-editable fields shared by categories and
// genres. It is already validated when it reaches a repository.
type FolderInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

type CategoryRepository interface {
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	GetCategory(ctx context.Context, id, userID string) (*model.Category, error)
	CategoryNameTaken(ctx context.Context, userID, name, excludeID string) (bool, error)
	CreateCategory(ctx context.Context, userID string, in FolderInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, id, userID string, in FolderInput) (*model.Category, error)
	CategoryDeletionStats(ctx context.Context, id, userID string) (*model.CategoryDeletionStats, error)
	DeleteCategory(ctx context.Context, id, userID string) (string, error)
}

type GenreRepository interface {
	ListGenres(ctx context.Context, categoryID, userID string) ([]model.Genre, error)
	GetGenre(ctx context.Context, id, userID string) (*model.Genre, error)
	GenreNameTaken(ctx context.Context, userID, categoryID, name, excludeID string) (bool, error)
	CreateGenre(ctx context.Context, userID, categoryID string, in FolderInput) (*model.Genre, error)
	UpdateGenre(ctx context.Context, id, userID string, in FolderInput) (*model.Genre, error)
	GenreDeletionStats(ctx context.Context, id, userID string) (*model.GenreDeletionStats, error)
	DeleteGenre(ctx context.Context, id, userID string) (string, error)
}

// CreateURLParams is the validated input to URLRepository.CreateURL.
type CreateURLParams struct {
	UserID      string
	GenreID     string
	Title       string
	URL         string
	Description string
	FaviconURL  string
}

type URLRepository interface {
	CreateURL(ctx context.Context, p CreateURLParams) (*model.URL, error)
	ListURLs(ctx context.Context, genreID, userID string) ([]model.URL, error)
	DeleteURL(ctx context.Context, id, userID string) (*model.URLDeletion, error)
	RecordVisit(ctx context.Context, id, userID string, at time.Time) (*model.URL, error)
}

// Store bundles every repository; *sqlite.DB satisfies it.
type Store interface {
	UserRepository
	CategoryRepository
	GenreRepository
	URLRepository
}
