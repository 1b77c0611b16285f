package repository

import (
	"context"
	"strings"

	"wallhub/internal/gateway"
	"wallhub/internal/models"

	"gorm.io/gorm"
)

// ImageRepository is gorm access to the images table.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a repository implementation for catalog rows.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// List returns rows newest first, filtered like the REST adapter: title or
// description ILIKE, or a lowercased tag element.
func (r *ImageRepository) List(ctx context.Context, filter gateway.ImageFilter) ([]models.Image, error) {
	q := r.db.WithContext(ctx).Model(&models.Image{})
	if filter.UploadedBy != "" {
		q = q.Where("uploaded_by = ?", filter.UploadedBy)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ? OR ? = ANY(tags)", like, like, strings.ToLower(term))
	}

	var rows []models.Image
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// Insert creates a row and returns it with server defaults filled in.
func (r *ImageRepository) Insert(ctx context.Context, in models.NewImage) (*models.Image, error) {
	row := in.Record()
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translate(err)
	}
	return row, nil
}

// Delete removes the row with id.
func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Image{}).Error)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
