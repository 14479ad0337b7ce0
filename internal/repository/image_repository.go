package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixelvault/marketplace/internal/domain"
)

// ImageFilter narrows catalog listings.
type ImageFilter struct {
	CategoryID  *string
	SearchTerm  *string
	PremiumOnly bool
	Limit       int
	Offset      int
}

// ImageRepository encapsulates image catalog persistence.
type ImageRepository interface {
	Create(ctx context.Context, image *domain.Image) error
	Update(ctx context.Context, image *domain.Image) error
	GetByID(ctx context.Context, id string) (*domain.Image, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Image, error)
	List(ctx context.Context, filter ImageFilter) ([]domain.Image, int64, error)
	Related(ctx context.Context, categoryID, excludeID string, limit int) ([]domain.Image, error)
	IncrementDownloads(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type imageRepository struct {
	pool *pgxpool.Pool
}

// NewImageRepository instantiates repository.
func NewImageRepository(pool *pgxpool.Pool) ImageRepository {
	return &imageRepository{pool: pool}
}

const imageColumns = `id, title, slug, description, category_id, tags, file_key, file_type, is_premium, downloads, created_at, updated_at`

func scanImage(row rowScanner) (*domain.Image, error) {
	var image domain.Image
	if err := row.Scan(
		&image.ID,
		&image.Title,
		&image.Slug,
		&image.Description,
		&image.CategoryID,
		&image.Tags,
		&image.FileKey,
		&image.FileType,
		&image.IsPremium,
		&image.Downloads,
		&image.CreatedAt,
		&image.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &image, nil
}

func collectImages(rows pgx.Rows) ([]domain.Image, error) {
	defer rows.Close()
	images := make([]domain.Image, 0)
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *image)
	}
	return images, rows.Err()
}

func (r *imageRepository) Create(ctx context.Context, image *domain.Image) error {
	const query = `
        INSERT INTO images (title, slug, description, category_id, tags, file_key, file_type, is_premium)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, downloads, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		image.Title,
		image.Slug,
		image.Description,
		image.CategoryID,
		image.Tags,
		image.FileKey,
		image.FileType,
		image.IsPremium,
	).Scan(&image.ID, &image.Downloads, &image.CreatedAt, &image.UpdatedAt)
}

func (r *imageRepository) Update(ctx context.Context, image *domain.Image) error {
	const query = `
        UPDATE images SET title=$1, description=$2, category_id=$3, tags=$4, is_premium=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		image.Title,
		image.Description,
		image.CategoryID,
		image.Tags,
		image.IsPremium,
		image.ID,
	).Scan(&image.UpdatedAt)
}

func (r *imageRepository) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	return scanImage(r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id=$1`, id))
}

func (r *imageRepository) GetBySlug(ctx context.Context, slug string) (*domain.Image, error) {
	return scanImage(r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE slug=$1`, slug))
}

func (r *imageRepository) List(ctx context.Context, filter ImageFilter) ([]domain.Image, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argPos := 1

	if filter.CategoryID != nil {
		clauses = append(clauses, fmt.Sprintf("category_id = $%d", argPos))
		args = append(args, *filter.CategoryID)
		argPos++
	}
	if filter.SearchTerm != nil {
		clauses = append(clauses, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR $%d = ANY(tags))`, argPos, argPos+1))
		args = append(args, "%"+escapeLike(*filter.SearchTerm)+"%", *filter.SearchTerm)
		argPos += 2
	}
	if filter.PremiumOnly {
		clauses = append(clauses, "is_premium")
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM images WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		imageColumns, where, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	images, err := collectImages(rows)
	if err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

func (r *imageRepository) Related(ctx context.Context, categoryID, excludeID string, limit int) ([]domain.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images
        WHERE category_id=$1 AND id<>$2
        ORDER BY random() LIMIT $3`
	rows, err := r.pool.Query(ctx, query, categoryID, excludeID, limit)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

func (r *imageRepository) IncrementDownloads(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE images SET downloads = downloads + 1 WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *imageRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM images WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *imageRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images`).Scan(&total)
	return total, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
