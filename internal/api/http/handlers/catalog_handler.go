package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pixelvault/marketplace/internal/api/dto"
	"github.com/pixelvault/marketplace/internal/service"
	"github.com/pixelvault/marketplace/pkg/pagination"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

// CatalogHandler exposes categories and images.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories handles GET /categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "categories": dto.NewCategoryResponses(categories)})
}

// CreateCategory handles POST /admin/categories.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.catalog.CreateCategory(c.UserContext(), req.Name, req.Slug)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "category": dto.NewCategoryResponse(category)})
}

// DeleteCategory handles DELETE /admin/categories/:id.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListImages handles GET /images?category=&q=&page=&limit=.
func (h *CatalogHandler) ListImages(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	images, total, err := h.catalog.ListImages(c.UserContext(), service.ImageQuery{
		CategoryID: c.Query("category"),
		Search:     c.Query("q"),
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"images":     dto.NewImageResponses(images, h.catalog.FileURL),
		"pagination": pagination.GetMeta(params, total),
	})
}

// GetImage handles GET /images/:slug.
func (h *CatalogHandler) GetImage(c *fiber.Ctx) error {
	slug, err := pathParam(c, "slug")
	if err != nil {
		return err
	}
	image, err := h.catalog.GetImage(c.UserContext(), slug)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "image": dto.NewImageResponse(image, h.catalog.FileURL)})
}

// Related handles GET /images/:id/related.
func (h *CatalogHandler) Related(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	images, err := h.catalog.Related(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "images": dto.NewImageResponses(images, h.catalog.FileURL)})
}

// Download handles POST /images/:id/download.
func (h *CatalogHandler) Download(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	url, err := h.catalog.Download(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "url": url})
}

// CreateImage handles multipart POST /admin/images.
func (h *CatalogHandler) CreateImage(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("file could not be read", nil)
	}
	defer file.Close()

	isPremium, _ := strconv.ParseBool(c.FormValue("isPremium", "false"))
	image, err := h.catalog.CreateImage(c.UserContext(), service.ImageInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		CategoryID:  c.FormValue("categoryId"),
		Tags:        splitTags(c.FormValue("tags")),
		IsPremium:   isPremium,
		FileName:    header.Filename,
		File:        file,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "image": dto.NewImageResponse(image, h.catalog.FileURL)})
}

// UpdateImage handles PUT /admin/images/:id.
func (h *CatalogHandler) UpdateImage(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateImageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	image, err := h.catalog.UpdateImage(c.UserContext(), id, service.ImageUpdate{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
		IsPremium:   req.IsPremium,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "image": dto.NewImageResponse(image, h.catalog.FileURL)})
}

// DeleteImage handles DELETE /admin/images/:id.
func (h *CatalogHandler) DeleteImage(c *fiber.Ctx) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteImage(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
