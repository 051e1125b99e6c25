package model

import "time"

// URL is a saved bookmark. It belongs to a genre only through its
// UrlCategory join row; GenreID and CategoryID are filled from that row on
// reads and are not columns of the urls table.
type URL struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	GenreID        string     `json:"genreId,omitempty"`
	CategoryID     string     `json:"categoryId,omitempty"`
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	Description    string     `json:"description,omitempty"`
	FaviconURL     string     `json:"faviconUrl,omitempty"`
	IsPublic       bool       `json:"isPublic"`
	ViewCount      int        `json:"viewCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

// UrlCategory links one URL to its one (category, genre) pair.
type UrlCategory struct {
	ID         string    `json:"id"`
	URLID      string    `json:"urlId"`
	CategoryID string    `json:"categoryId"`
	GenreID    string    `json:"genreId"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// URLDeletion tells the caller which folders to invalidate after a URL is
// removed.
type URLDeletion struct {
	URLID      string `json:"urlId"`
	GenreID    string `json:"genreId"`
	CategoryID string `json:"categoryId"`
}
