package dto

import (
	"time"

	"github.com/pixelvault/marketplace/internal/domain"
)

// CategoryRequest payload for new categories.
type CategoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CategoryResponse is the public view of a category.
type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCategoryResponse maps a category.
func NewCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, CreatedAt: c.CreatedAt}
}

// NewCategoryResponses maps categories.
func NewCategoryResponses(categories []domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, NewCategoryResponse(&categories[i]))
	}
	return out
}

// UpdateImageRequest payload for image metadata changes.
type UpdateImageRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	CategoryID  *string  `json:"categoryId"`
	Tags        []string `json:"tags"`
	IsPremium   *bool    `json:"isPremium"`
}

// ImageResponse is the public view of a catalog image.
type ImageResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CategoryID  string    `json:"categoryId"`
	Tags        []string  `json:"tags"`
	FileType    string    `json:"fileType"`
	IsPremium   bool      `json:"isPremium"`
	Downloads   int64     `json:"downloads"`
	PreviewURL  string    `json:"previewUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewImageResponse maps an image. The file URL is only exposed for free images.
func NewImageResponse(image *domain.Image, fileURL func(*domain.Image) string) ImageResponse {
	resp := ImageResponse{
		ID:          image.ID,
		Title:       image.Title,
		Slug:        image.Slug,
		Description: image.Description,
		CategoryID:  image.CategoryID,
		Tags:        image.Tags,
		FileType:    image.FileType,
		IsPremium:   image.IsPremium,
		Downloads:   image.Downloads,
		CreatedAt:   image.CreatedAt,
		UpdatedAt:   image.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if !image.IsPremium && fileURL != nil {
		resp.PreviewURL = fileURL(image)
	}
	return resp
}

// NewImageResponses maps images.
func NewImageResponses(images []domain.Image, fileURL func(*domain.Image) string) []ImageResponse {
	out := make([]ImageResponse, 0, len(images))
	for i := range images {
		out = append(out, NewImageResponse(&images[i], fileURL))
	}
	return out
}
