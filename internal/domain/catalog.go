package domain

import "time"

// Category groups images; slug is unique.
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Image is a downloadable catalog asset.
type Image struct {
	ID          string
	Title       string
	Slug        string
	Description string
	CategoryID  string
	Tags        []string
	FileKey     string
	FileType    string
	IsPremium   bool
	Downloads   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
