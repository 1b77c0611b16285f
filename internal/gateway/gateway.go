// Package gateway declares the backend capabilities the managers consume:
// an auth session store, row access to the catalog tables, object storage and
// counter procedures. Adapters live in subpackages and sibling packages.
package gateway

import (
	"context"

	"wallhub/internal/models"
)

// AuthListener receives pushed auth-state transitions. session is nil when
// the transition leaves no authenticated user.
type AuthListener func(event models.AuthEvent, session *models.Session)

// Auth is the session store capability.
type Auth interface {
	GetSession(ctx context.Context) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChange registers fn and returns a function releasing it.
	OnAuthStateChange(fn AuthListener) (unsubscribe func())
}

// ImageFilter narrows an image listing. Results are always newest first.
type ImageFilter struct {
	// Query matches title or description case-insensitively, or a tag.
	Query string
	// UploadedBy restricts rows to one uploader.
	UploadedBy string
}

// ImageTable is row access to the images table.
type ImageTable interface {
	List(ctx context.Context, filter ImageFilter) ([]models.Image, error)
	Insert(ctx context.Context, img models.NewImage) (*models.Image, error)
	Delete(ctx context.Context, id string) error
}

// ProfileTable is row access to the user_profiles table.
type ProfileTable interface {
	// GetByUserID returns an error matching ErrNotFound when no row exists.
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	Insert(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
	Update(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error)
}

// LikeTable is insert/delete access to the image_likes relation.
type LikeTable interface {
	Insert(ctx context.Context, imageID, userID string) error
	Delete(ctx context.Context, imageID, userID string) error
}

// ObjectStore is the object storage capability for uploaded files.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	PublicURL(key string) string
	Remove(ctx context.Context, keys ...string) error
}

// Procedures are the named counter and aggregate procedures.
type Procedures interface {
	ImageLikeCount(ctx context.Context, imageID string) (int, error)
	UserLikedImage(ctx context.Context, imageID, userID string) (bool, error)
	IncrementUserUploads(ctx context.Context, userID string) error
}

// Backend bundles one adapter per capability.
type Backend struct {
	Auth     Auth
	Images   ImageTable
	Profiles ProfileTable
	Likes    LikeTable
	Objects  ObjectStore
	RPC      Procedures
}
