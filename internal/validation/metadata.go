package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"wallhub/internal/models"
)

// Metadata limits.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxTags              = 10
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title too long")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrTooManyTags        = errors.New("too many tags")
)

// Metadata is the user-supplied description of an upload.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
}

// NormalizeMetadata trims title and description, normalizes tags and checks
// the length limits. The returned value is what gets persisted.
func NormalizeMetadata(m Metadata) (Metadata, error) {
	out := Metadata{
		Title:       strings.TrimSpace(m.Title),
		Description: strings.TrimSpace(m.Description),
		Tags:        NormalizeTags(m.Tags),
	}

	if out.Title == "" {
		return Metadata{}, models.NewValidationError("Title is required", ErrTitleRequired)
	}
	if utf8.RuneCountInString(out.Title) > MaxTitleLength {
		return Metadata{}, models.NewValidationError("Title must be less than 100 characters", ErrTitleTooLong)
	}
	if utf8.RuneCountInString(out.Description) > MaxDescriptionLength {
		return Metadata{}, models.NewValidationError("Description must be less than 500 characters", ErrDescriptionTooLong)
	}
	if len(out.Tags) > MaxTags {
		return Metadata{}, models.NewValidationError("A wallpaper can have at most 10 tags", ErrTooManyTags)
	}
	return out, nil
}

// NormalizeTags lower-cases and trims tags, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SplitTags parses a comma separated tag list as typed on the command line.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(raw, ","))
}
