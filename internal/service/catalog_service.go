package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/events"
	"github.com/pixelvault/marketplace/internal/repository"
	"github.com/pixelvault/marketplace/internal/storage"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// RelatedImageCount is how many related images are returned for a detail page.
const RelatedImageCount = 8

var allowedFileTypes = map[string]string{
	".psd":  "psd",
	".ai":   "vector",
	".eps":  "vector",
	".svg":  "vector",
	".png":  "png",
	".jpg":  "jpg",
	".jpeg": "jpg",
	".webp": "webp",
}

// CatalogService manages categories and images.
type CatalogService struct {
	categories repository.CategoryRepository
	images     repository.ImageRepository
	users      repository.UserRepository
	files      storage.Store
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	CategoryRepo repository.CategoryRepository
	ImageRepo    repository.ImageRepository
	UserRepo     repository.UserRepository
	Files        storage.Store
	Dispatcher   events.Dispatcher
}

// ImageQuery filters public listings.
type ImageQuery struct {
	CategoryID string
	Search     string
	Limit      int
	Offset     int
}

// ImageInput describes a new upload.
type ImageInput struct {
	Title       string
	Description string
	CategoryID  string
	Tags        []string
	IsPremium   bool
	FileName    string
	File        io.Reader
}

// ImageUpdate carries partial image changes.
type ImageUpdate struct {
	Title       *string
	Description *string
	CategoryID  *string
	Tags        []string
	IsPremium   *bool
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	return &CatalogService{
		categories: deps.CategoryRepo,
		images:     deps.ImageRepo,
		users:      deps.UserRepo,
		files:      deps.Files,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// ListCategories returns every category.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// CreateCategory stores a category, deriving the slug from the name when absent.
func (s *CatalogService) CreateCategory(ctx context.Context, name, slug string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	slug = Slugify(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, apperrors.NewValidationError("slug cannot be derived from name", nil)
	}
	category := &domain.Category{Name: name, Slug: slug}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.categories.Delete(ctx, id)
}

// ListImages returns a filtered page of images.
func (s *CatalogService) ListImages(ctx context.Context, q ImageQuery) ([]domain.Image, int64, error) {
	filter := repository.ImageFilter{Limit: q.Limit, Offset: q.Offset}
	if v := strings.TrimSpace(q.CategoryID); v != "" {
		filter.CategoryID = &v
	}
	if v := strings.TrimSpace(q.Search); v != "" {
		filter.SearchTerm = &v
	}
	return s.images.List(ctx, filter)
}

// GetImage returns an image by slug.
func (s *CatalogService) GetImage(ctx context.Context, slug string) (*domain.Image, error) {
	return s.images.GetBySlug(ctx, slug)
}

// Related returns random images from the same category, excluding the image itself.
func (s *CatalogService) Related(ctx context.Context, imageID string) ([]domain.Image, error) {
	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return s.images.Related(ctx, image.CategoryID, image.ID, RelatedImageCount)
}

// FileURL returns the public address of an image file.
func (s *CatalogService) FileURL(image *domain.Image) string {
	return s.files.URL(image.FileKey)
}

// Download counts a download and returns the file URL. Premium images need an active subscription.
func (s *CatalogService) Download(ctx context.Context, identity *domain.Identity, imageID string) (string, error) {
	if identity == nil {
		return "", apperrors.NewUnauthenticated("authentication required")
	}
	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return "", err
	}
	if image.IsPremium && identity.Role != domain.RoleAdmin {
		user, err := s.users.GetByID(ctx, identity.ID)
		if err != nil {
			return "", err
		}
		if !user.HasActivePremium(s.now()) {
			return "", apperrors.NewForbidden("premium subscription required")
		}
	}
	if err := s.images.IncrementDownloads(ctx, image.ID); err != nil {
		return "", err
	}
	return s.files.URL(image.FileKey), nil
}

// CreateImage stores the uploaded file and its record. The file is removed if the record cannot be written.
func (s *CatalogService) CreateImage(ctx context.Context, input ImageInput) (*domain.Image, error) {
	title := strings.TrimSpace(input.Title)
	categoryID := strings.TrimSpace(input.CategoryID)
	missing := missingFields(map[string]string{"title": title, "categoryId": categoryID, "file": input.FileName})
	if len(missing) > 0 || input.File == nil {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	ext := strings.ToLower(filepath.Ext(input.FileName))
	fileType, ok := allowedFileTypes[ext]
	if !ok {
		return nil, apperrors.NewValidationError("unsupported file type", map[string]any{"extension": ext})
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("category", map[string]any{"id": categoryID})
		}
		return nil, err
	}

	id := uuid.NewString()
	key := fmt.Sprintf("images/%s%s", id, ext)
	if err := s.files.Save(ctx, key, input.File); err != nil {
		return nil, apperrors.NewUpstreamError("could not store file", err)
	}

	image := &domain.Image{
		Title:       title,
		Slug:        fmt.Sprintf("%s-%s", Slugify(title), id[:8]),
		Description: strings.TrimSpace(input.Description),
		CategoryID:  categoryID,
		Tags:        cleanTags(input.Tags),
		FileKey:     key,
		FileType:    fileType,
		IsPremium:   input.IsPremium,
	}
	if err := s.images.Create(ctx, image); err != nil {
		_ = s.files.Delete(ctx, key)
		return nil, err
	}
	return image, nil
}

// UpdateImage applies metadata changes.
func (s *CatalogService) UpdateImage(ctx context.Context, id string, update ImageUpdate) (*domain.Image, error) {
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		image.Title = title
	}
	if update.Description != nil {
		image.Description = strings.TrimSpace(*update.Description)
	}
	if update.CategoryID != nil && *update.CategoryID != image.CategoryID {
		if _, err := s.categories.GetByID(ctx, *update.CategoryID); err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("category", map[string]any{"id": *update.CategoryID})
			}
			return nil, err
		}
		image.CategoryID = *update.CategoryID
	}
	if update.Tags != nil {
		image.Tags = cleanTags(update.Tags)
	}
	if update.IsPremium != nil {
		image.IsPremium = *update.IsPremium
	}
	if err := s.images.Update(ctx, image); err != nil {
		return nil, err
	}
	return image, nil
}

// DeleteImage removes the record and its stored file.
func (s *CatalogService) DeleteImage(ctx context.Context, id string) error {
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.images.Delete(ctx, image.ID); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, image.FileKey); err != nil {
		return apperrors.NewUpstreamError("image removed but file could not be deleted", err)
	}
	publish(ctx, s.dispatcher, events.New(events.EventImageDeleted, image.ID, events.ImageDeletedPayload{
		Slug:    image.Slug,
		FileKey: image.FileKey,
	}))
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
