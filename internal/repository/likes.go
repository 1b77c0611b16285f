package repository

import (
	"context"

	"wallhub/internal/gateway"
	"wallhub/internal/models"

	"gorm.io/gorm"
)

// LikeRepository is gorm access to the image_likes relation.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a repository implementation for likes.
func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Insert records that userID likes imageID.
func (r *LikeRepository) Insert(ctx context.Context, imageID, userID string) error {
	like := &models.ImageLike{ImageID: imageID, UserID: userID}
	return translate(r.db.WithContext(ctx).Create(like).Error)
}

// Delete removes the like of userID on imageID. Deleting a like that does
// not exist fails with an error matching gateway.ErrNotFound.
func (r *LikeRepository) Delete(ctx context.Context, imageID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("image_id = ? AND user_id = ?", imageID, userID).
		Delete(&models.ImageLike{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gateway.NotFound("like not found")
	}
	return nil
}
