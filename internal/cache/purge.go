package cache

import (
	"context"
	"fmt"
	"strings"

	"wallhub/internal/observability"
)

var authKeyMarkers = []string{"supabase", "auth", "sb-"}

// IsAuthArtifactKey reports whether key looks like a cached auth token entry.
func IsAuthArtifactKey(key string) bool {
	for _, m := range authKeyMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

// PurgeAuthArtifacts deletes every auth-looking key from store and returns
// how many were removed. A nil store purges nothing.
func PurgeAuthArtifacts(ctx context.Context, store ArtifactStore) (int, error) {
	if store == nil {
		return 0, nil
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list artifacts: %w", err)
	}

	var stale []string
	for _, k := range keys {
		if IsAuthArtifactKey(k) {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := store.Delete(ctx, stale...); err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	observability.AuthArtifactPurges.Add(float64(len(stale)))
	return len(stale), nil
}
