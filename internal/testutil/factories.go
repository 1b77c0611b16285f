package testutil

import (
	"time"

	"wallhub/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FakeUser returns a user with a random id and email.
func FakeUser() *models.User {
	return &models.User{
		ID:    uuid.NewString(),
		Email: gofakeit.Email(),
	}
}

// FakeSession returns a session for user with opaque tokens.
func FakeSession(user *models.User) *models.Session {
	return &models.Session{
		AccessToken:  gofakeit.UUID(),
		RefreshToken: gofakeit.UUID(),
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         user,
	}
}

// FakeImage returns a persisted landscape image row uploaded by uploader.
func FakeImage(uploader string, createdAt time.Time) models.Image {
	desc := gofakeit.Sentence(8)
	width, height := 3840, 2160
	size := int64(gofakeit.Number(500_000, 9_000_000))
	return models.Image{
		ID:          uuid.NewString(),
		Title:       gofakeit.Sentence(3),
		Description: &desc,
		ImageURL:    gofakeit.URL(),
		Tags:        pq.StringArray{gofakeit.Word(), gofakeit.Word()},
		UploadedBy:  &uploader,
		FileSize:    &size,
		Width:       &width,
		Height:      &height,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}
