package rest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"wallhub/internal/gateway"
	"wallhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Images is PostgREST access to the images table.
type Images struct {
	c *Client
}

// List returns rows newest first. A query matches title or description
// case-insensitively, or a tag element. Stored tags are lowercase.
func (t *Images) List(ctx context.Context, filter gateway.ImageFilter) ([]models.Image, error) {
	q := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
	}
	if filter.UploadedBy != "" {
		q.Set("uploaded_by", "eq."+filter.UploadedBy)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		q.Set("or", searchFilter(term))
	}

	var rows []models.Image
	err := t.c.do(ctx, request{
		capability: "images",
		operation:  "list",
		method:     fiber.MethodGet,
		path:       restPath + "/images",
		query:      q,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func searchFilter(term string) string {
	like := quote("*" + term + "*")
	tag := "{" + quote(strings.ToLower(term)) + "}"
	return fmt.Sprintf("(title.ilike.%s,description.ilike.%s,tags.cs.%s)", like, like, tag)
}

// Insert creates a row and returns it as stored.
func (t *Images) Insert(ctx context.Context, in models.NewImage) (*models.Image, error) {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	var row models.Image
	err := t.c.do(ctx, request{
		capability: "images",
		operation:  "insert",
		method:     fiber.MethodPost,
		path:       restPath + "/images",
		query:      url.Values{"select": {"*"}},
		headers:    representation(),
		json:       in,
	}, &row)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes the row with id.
func (t *Images) Delete(ctx context.Context, id string) error {
	return t.c.do(ctx, request{
		capability: "images",
		operation:  "delete",
		method:     fiber.MethodDelete,
		path:       restPath + "/images",
		query:      url.Values{"id": {"eq." + id}},
	}, nil)
}

// Profiles is PostgREST access to the user_profiles table.
type Profiles struct {
	c *Client
}

// GetByUserID returns the profile of userID, or an error matching
// gateway.ErrNotFound.
func (t *Profiles) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := t.c.do(ctx, request{
		capability: "profiles",
		operation:  "get",
		method:     fiber.MethodGet,
		path:       restPath + "/user_profiles",
		query:      url.Values{"select": {"*"}, "user_id": {"eq." + userID}},
		headers:    map[string]string{fiber.HeaderAccept: singleObjectMIME},
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert creates a profile row. Server-assigned columns are omitted.
func (t *Profiles) Insert(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	body := map[string]any{
		"user_id":         profile.UserID,
		"username":        profile.Username,
		"total_uploads":   profile.TotalUploads,
		"total_downloads": profile.TotalDownloads,
	}
	var p models.UserProfile
	err := t.c.do(ctx, request{
		capability: "profiles",
		operation:  "insert",
		method:     fiber.MethodPost,
		path:       restPath + "/user_profiles",
		query:      url.Values{"select": {"*"}},
		headers:    representation(),
		json:       body,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies patch to the profile of userID and returns the new row.
func (t *Profiles) Update(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	var p models.UserProfile
	err := t.c.do(ctx, request{
		capability: "profiles",
		operation:  "update",
		method:     fiber.MethodPatch,
		path:       restPath + "/user_profiles",
		query:      url.Values{"select": {"*"}, "user_id": {"eq." + userID}},
		headers:    representation(),
		json:       patch.Columns(),
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Likes is PostgREST access to the image_likes relation.
type Likes struct {
	c *Client
}

// Insert records that userID likes imageID. A second insert fails with an
// error matching gateway.ErrDuplicate.
func (t *Likes) Insert(ctx context.Context, imageID, userID string) error {
	return t.c.do(ctx, request{
		capability: "likes",
		operation:  "insert",
		method:     fiber.MethodPost,
		path:       restPath + "/image_likes",
		json:       map[string]string{"image_id": imageID, "user_id": userID},
	}, nil)
}

// Delete removes the like of userID on imageID. Deleting a like that does
// not exist fails with an error matching gateway.ErrNotFound.
func (t *Likes) Delete(ctx context.Context, imageID, userID string) error {
	var removed []models.ImageLike
	err := t.c.do(ctx, request{
		capability: "likes",
		operation:  "delete",
		method:     fiber.MethodDelete,
		path:       restPath + "/image_likes",
		query: url.Values{
			"image_id": {"eq." + imageID},
			"user_id":  {"eq." + userID},
		},
		headers: map[string]string{"Prefer": "return=representation"},
	}, &removed)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return gateway.NotFound("like not found")
	}
	return nil
}

// representation asks PostgREST to return the written row as one object.
func representation() map[string]string {
	return map[string]string{
		"Prefer":           "return=representation",
		fiber.HeaderAccept: singleObjectMIME,
	}
}
