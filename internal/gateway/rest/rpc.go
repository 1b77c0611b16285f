package rest

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// RPC calls the counter procedures exposed under /rest/v1/rpc.
type RPC struct {
	c *Client
}

func (r *RPC) call(ctx context.Context, name string, args map[string]string, out any) error {
	return r.c.do(ctx, request{
		capability: "rpc",
		operation:  name,
		method:     fiber.MethodPost,
		path:       restPath + "/rpc/" + name,
		json:       args,
	}, out)
}

// ImageLikeCount returns the number of likes on imageID.
func (r *RPC) ImageLikeCount(ctx context.Context, imageID string) (int, error) {
	var n *int
	if err := r.call(ctx, "get_image_like_count", map[string]string{"image_id": imageID}, &n); err != nil {
		return 0, err
	}
	if n == nil {
		return 0, nil
	}
	return *n, nil
}

// UserLikedImage reports whether userID likes imageID.
func (r *RPC) UserLikedImage(ctx context.Context, imageID, userID string) (bool, error) {
	var liked *bool
	err := r.call(ctx, "user_liked_image", map[string]string{"image_id": imageID, "user_id": userID}, &liked)
	if err != nil {
		return false, err
	}
	return liked != nil && *liked, nil
}

// IncrementUserUploads bumps the upload counter on the profile of userID.
func (r *RPC) IncrementUserUploads(ctx context.Context, userID string) error {
	return r.call(ctx, "increment_user_uploads", map[string]string{"user_id": userID}, nil)
}
