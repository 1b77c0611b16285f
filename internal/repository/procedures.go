package repository

import (
	"context"

	"wallhub/internal/models"

	"gorm.io/gorm"
)

// Procedures computes the counter procedures with plain queries.
type Procedures struct {
	db *gorm.DB
}

// NewProcedures returns the database-mode procedure implementation.
func NewProcedures(db *gorm.DB) *Procedures {
	return &Procedures{db: db}
}

// ImageLikeCount returns the number of likes on imageID.
func (p *Procedures) ImageLikeCount(ctx context.Context, imageID string) (int, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Model(&models.ImageLike{}).
		Where("image_id = ?", imageID).
		Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

// UserLikedImage reports whether userID likes imageID.
func (p *Procedures) UserLikedImage(ctx context.Context, imageID, userID string) (bool, error) {
	var n int64
	err := p.db.WithContext(ctx).
		Model(&models.ImageLike{}).
		Where("image_id = ? AND user_id = ?", imageID, userID).
		Count(&n).Error
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

// IncrementUserUploads bumps total_uploads on the profile of userID.
func (p *Procedures) IncrementUserUploads(ctx context.Context, userID string) error {
	return translate(p.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		UpdateColumn("total_uploads", gorm.Expr("total_uploads + ?", 1)).Error)
}
