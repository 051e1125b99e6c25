package model

import "time"

// Genre is a second-level folder inside a Category.
// CategoryName is filled by lookups that join the parent; it is not stored.
type Genre struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Color        string    `json:"color,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	SortOrder    int       `json:"sortOrder"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GenreDeletionStats summarises what deleting a genre removes.
type GenreDeletionStats struct {
	GenreName    string   `json:"genreName"`
	CategoryName string   `json:"categoryName"`
	URLCount     int      `json:"urlCount"`
	URLTitles    []string `json:"urlTitles"`
}
