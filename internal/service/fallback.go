package service

import (
	"strconv"
	"strings"
	"time"

	"wallhub/internal/models"
	"wallhub/internal/seed"

	"github.com/lib/pq"
)

const seedSpacing = 24 * time.Hour

// wrapAsCatalog turns fallback items into seeded catalog records. Item i gets
// identifier demo-i and a timestamp i days before now, so the wrapped list
// is already newest first.
func wrapAsCatalog(items []seed.Item, now time.Time) []models.Image {
	out := make([]models.Image, 0, len(items))
	for i, it := range items {
		created := now.Add(-time.Duration(i) * seedSpacing)
		desc := it.Description
		width, height, size := it.Width, it.Height, it.FileSize
		tags := make(pq.StringArray, len(it.Tags))
		copy(tags, it.Tags)

		out = append(out, models.Image{
			ID:          models.SeedIDPrefix + strconv.Itoa(i),
			Origin:      models.OriginSeeded,
			Title:       it.Title,
			Description: &desc,
			ImageURL:    it.ImageURL,
			Tags:        tags,
			FileSize:    &size,
			Width:       &width,
			Height:      &height,
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}
	return out
}

// matchesQuery reports whether q occurs, ignoring case, in the title, the
// description or any tag of img.
func matchesQuery(img models.Image, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(img.Title), q) {
		return true
	}
	if img.Description != nil && strings.Contains(strings.ToLower(*img.Description), q) {
		return true
	}
	for _, tag := range img.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func filterCatalog(images []models.Image, q string) []models.Image {
	out := make([]models.Image, 0, len(images))
	for _, img := range images {
		if matchesQuery(img, q) {
			out = append(out, img)
		}
	}
	return out
}
