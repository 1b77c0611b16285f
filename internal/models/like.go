package models

import "time"

// ImageLike represents a user's like on an image.
// The combination of ImageID and UserID must be unique.
type ImageLike struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id,omitempty"`
	ImageID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_image_user" json:"image_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_image_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// TableName pins the backend table name.
func (ImageLike) TableName() string {
	return "image_likes"
}
