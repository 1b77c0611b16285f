// Package validation enforces the upload policy: metadata limits and the
// file pipeline (format, size, decodability, orientation, resolution).
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"wallhub/internal/models"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Upload policy defaults.
const (
	DefaultMaxUploadMB = 15
	MinWidth           = 1920
	MinHeight          = 1080
)

// Rule sentinels wrapped by the validation errors returned from Inspect.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnreadableImage   = errors.New("image could not be decoded")
	ErrNotLandscape      = errors.New("image is not landscape")
	ErrResolutionTooLow  = errors.New("image resolution too low")
)

var allowedMIME = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadPolicy bounds what the file pipeline accepts.
type UploadPolicy struct {
	MaxBytes  int64
	MinWidth  int
	MinHeight int
}

// DefaultUploadPolicy is the HD landscape policy.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes:  DefaultMaxUploadMB << 20,
		MinWidth:  MinWidth,
		MinHeight: MinHeight,
	}
}

// File is an upload candidate.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Inspection describes a file that passed the pipeline.
type Inspection struct {
	MIME   string
	Ext    string
	Width  int
	Height int
	Size   int64
}

// Inspect runs the file pipeline in order and stops at the first failure.
// Failures are *models.AppError values wrapping one of the rule sentinels,
// except undecodable payloads which carry the DECODE_ERROR code.
func (p UploadPolicy) Inspect(f File) (*Inspection, error) {
	mimeType := normalizeContentType(f.ContentType)
	if mimeType == "" && len(f.Data) > 0 {
		mimeType = normalizeContentType(http.DetectContentType(f.Data))
	}
	ext, ok := allowedMIME[mimeType]
	if !ok {
		return nil, models.NewValidationError("Please upload a valid image file (JPEG, PNG, or WebP)", ErrUnsupportedFormat)
	}

	size := int64(len(f.Data))
	if size > p.MaxBytes {
		return nil, models.NewValidationError(
			fmt.Sprintf("File size must be less than %dMB for HD quality uploads", p.MaxBytes>>20),
			ErrFileTooLarge,
		)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return nil, models.NewDecodeError(errors.Join(ErrUnreadableImage, err))
	}
	if decodedExt, known := allowedMIME[decodedFormatToMime(format)]; known {
		ext = decodedExt
	}

	if cfg.Width <= cfg.Height {
		return nil, models.NewValidationError(
			"Only landscape orientation wallpapers are allowed (width must be greater than height)",
			ErrNotLandscape,
		)
	}
	if cfg.Width < p.MinWidth || cfg.Height < p.MinHeight {
		return nil, models.NewValidationError(
			fmt.Sprintf("Image must be at least %d×%d pixels for HD quality. Your image is %d×%d",
				p.MinWidth, p.MinHeight, cfg.Width, cfg.Height),
			ErrResolutionTooLow,
		)
	}

	return &Inspection{
		MIME:   mimeType,
		Ext:    ext,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   size,
	}, nil
}

// RuleName returns a short label for the rule err violates, for metrics.
func RuleName(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "format"
	case errors.Is(err, ErrFileTooLarge):
		return "size"
	case errors.Is(err, ErrUnreadableImage):
		return "decode"
	case errors.Is(err, ErrNotLandscape):
		return "orientation"
	case errors.Is(err, ErrResolutionTooLow):
		return "resolution"
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrTitleTooLong):
		return "title"
	case errors.Is(err, ErrDescriptionTooLong):
		return "description"
	case errors.Is(err, ErrTooManyTags):
		return "tags"
	default:
		return "other"
	}
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
