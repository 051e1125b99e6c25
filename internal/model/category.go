package model

import "time"

// Category is a top-level folder owned by one user.
//
// ParentID is reserved and always nil for top-level folders; Level is 0 and
// Path is "/" + ID. Name is unique among the user's active folders.
type Category struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ParentID    *string   `json:"parentId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	Level       int       `json:"level"`
	Path        string    `json:"path"`
	IsActive    bool      `json:"isActive"`
	IsFolder    bool      `json:"isFolder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryDeletionStats summarises what deleting a category removes.
type CategoryDeletionStats struct {
	CategoryName string   `json:"categoryName"`
	GenreCount   int      `json:"genreCount"`
	URLCount     int      `json:"urlCount"`
	GenreNames   []string `json:"genreNames"`
	URLTitles    []string `json:"urlTitles"`
}
