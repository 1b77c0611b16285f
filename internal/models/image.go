// Package models contains data structures for the catalog, profile and session domain.
package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// SeedIDPrefix marks identifiers synthesized for fallback dataset records.
const SeedIDPrefix = "demo-"

// Origin tags where an Image came from. The zero value is OriginPersisted so
// that rows decoded from the backend never need an explicit tag.
type Origin int

const (
	// OriginPersisted images live in the backend catalog and may be mutated.
	OriginPersisted Origin = iota
	// OriginSeeded images come from the local fallback dataset and are read-only.
	OriginSeeded
)

func (o Origin) String() string {
	switch o {
	case OriginPersisted:
		return "persisted"
	case OriginSeeded:
		return "seeded"
	default:
		return "unknown"
	}
}

// Image is a displayable catalog record.
type Image struct {
	ID           string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Origin       Origin         `gorm:"-" json:"-"`
	Title        string         `gorm:"size:100;not null" json:"title"`
	Description  *string        `gorm:"size:500" json:"description"`
	ImageURL     string         `gorm:"not null" json:"image_url"`
	ThumbnailURL *string        `json:"thumbnail_url"`
	Tags         pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags"`
	UploadedBy   *string        `gorm:"type:uuid;index" json:"uploaded_by"`
	FileSize     *int64         `json:"file_size"`
	Width        *int           `json:"width"`
	Height       *int           `json:"height"`
	CreatedAt    time.Time      `gorm:"index:idx_images_created_at,sort:desc" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName pins the backend table name.
func (Image) TableName() string {
	return "images"
}

// Seeded reports whether the record belongs to the fallback dataset.
func (i Image) Seeded() bool {
	return i.Origin == OriginSeeded
}

// Ref returns the tagged reference used by mutation operations.
func (i Image) Ref() ImageRef {
	return ImageRef{ID: i.ID, Origin: i.Origin}
}

// ImageRef identifies an image together with its origin.
type ImageRef struct {
	ID     string
	Origin Origin
}

// Seeded reports whether the reference points at a fallback dataset record.
func (r ImageRef) Seeded() bool {
	return r.Origin == OriginSeeded
}

// ParseImageRef tags a raw identifier received from outside the process,
// such as a command-line argument.
func ParseImageRef(id string) ImageRef {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, SeedIDPrefix) {
		return ImageRef{ID: id, Origin: OriginSeeded}
	}
	return ImageRef{ID: id, Origin: OriginPersisted}
}

// NewImage is the insert payload for a freshly uploaded image.
type NewImage struct {
	Title        string   `json:"title"`
	Description  *string  `json:"description,omitempty"`
	ImageURL     string   `json:"image_url"`
	ThumbnailURL *string  `json:"thumbnail_url,omitempty"`
	Tags         []string `json:"tags"`
	UploadedBy   string   `json:"uploaded_by"`
	FileSize     int64    `json:"file_size"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
}

// Record converts the payload into a persisted Image row.
func (n NewImage) Record() *Image {
	uploader := n.UploadedBy
	size := n.FileSize
	width := n.Width
	height := n.Height
	tags := pq.StringArray(n.Tags)
	if tags == nil {
		tags = pq.StringArray{}
	}
	return &Image{
		Title:        n.Title,
		Description:  n.Description,
		ImageURL:     n.ImageURL,
		ThumbnailURL: n.ThumbnailURL,
		Tags:         tags,
		UploadedBy:   &uploader,
		FileSize:     &size,
		Width:        &width,
		Height:       &height,
	}
}
