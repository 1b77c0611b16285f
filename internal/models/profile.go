package models

import (
	"time"
)

const defaultUsernamePrefix = "user_"

// UserProfile is the public profile attached to an authenticated user.
type UserProfile struct {
	ID             string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Username       *string   `gorm:"uniqueIndex" json:"username"`
	FullName       *string   `json:"full_name"`
	Bio            *string   `json:"bio"`
	AvatarURL      *string   `json:"avatar_url"`
	Website        *string   `json:"website"`
	TotalUploads   int       `gorm:"not null;default:0" json:"total_uploads"`
	TotalDownloads int       `gorm:"not null;default:0" json:"total_downloads"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName pins the backend table name.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// NewDefaultProfile builds the profile created on first session resolution.
func NewDefaultProfile(userID string) *UserProfile {
	username := DefaultUsername(userID)
	return &UserProfile{
		UserID:   userID,
		Username: &username,
	}
}

// DefaultUsername derives "user_" plus the first eight characters of the user id.
func DefaultUsername(userID string) string {
	runes := []rune(userID)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return defaultUsernamePrefix + string(runes)
}

// ProfilePatch carries the editable profile fields. Nil fields are left untouched.
type ProfilePatch struct {
	Username *string `json:"username,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Website  *string `json:"website,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.FullName == nil && p.Bio == nil && p.Website == nil
}

// Columns returns the patch as a column map for partial updates.
func (p ProfilePatch) Columns() map[string]any {
	out := make(map[string]any, 4)
	if p.Username != nil {
		out["username"] = *p.Username
	}
	if p.FullName != nil {
		out["full_name"] = *p.FullName
	}
	if p.Bio != nil {
		out["bio"] = *p.Bio
	}
	if p.Website != nil {
		out["website"] = *p.Website
	}
	return out
}
