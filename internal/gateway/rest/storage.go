package rest

import (
	"context"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const objectCacheControl = "max-age=3600"

// Storage is the object API for one bucket.
type Storage struct {
	c *Client
}

// Upload stores body under key. Existing objects are never overwritten.
func (s *Storage) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	return s.c.do(ctx, request{
		capability: "storage",
		operation:  "upload",
		method:     fiber.MethodPost,
		path:       storagePath + "/object/" + s.c.bucket + "/" + escapeKey(key),
		headers: map[string]string{
			"x-upsert":               "false",
			fiber.HeaderCacheControl: objectCacheControl,
		},
		raw:     body,
		rawType: contentType,
	}, nil)
}

// PublicURL is the unauthenticated download URL of key.
func (s *Storage) PublicURL(key string) string {
	return s.c.baseURL + storagePath + "/object/public/" + s.c.bucket + "/" + escapeKey(key)
}

// Remove deletes keys. Missing objects are ignored by the service.
func (s *Storage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.c.do(ctx, request{
		capability: "storage",
		operation:  "remove",
		method:     fiber.MethodDelete,
		path:       storagePath + "/object/" + s.c.bucket,
		json:       map[string][]string{"prefixes": keys},
	}, nil)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
