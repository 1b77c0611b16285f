package repository

import (
	"context"

	"wallhub/internal/gateway"
	"wallhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository is gorm access to the user_profiles table.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a repository implementation for profiles.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID returns the profile of userID, or an error matching
// gateway.ErrNotFound.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// Insert creates a profile row.
func (r *ProfileRepository) Insert(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	row := *profile
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// Update applies patch to the profile of userID and returns the new row.
func (r *ProfileRepository) Update(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	if patch.Empty() {
		return r.GetByUserID(ctx, userID)
	}

	var rows []models.UserProfile
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("user_id = ?", userID).
		Updates(patch.Columns())
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, gateway.NotFound("no profile for user " + userID)
	}
	return &rows[0], nil
}
