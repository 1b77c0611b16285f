package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"wallhub/internal/cache"
	"wallhub/internal/config"
	"wallhub/internal/models"

	"github.com/stretchr/testify/require"
)

var (
	configured   = config.NewGuard("https://abcd.supabase.co", "anon-key")
	unconfigured = config.NewGuard("", "")
)

type staticIdentity struct{ user *models.User }

func (s staticIdentity) User() *models.User { return s.user }

// countingStore records how often the purge path lists keys.
type countingStore struct {
	*cache.MemoryStore
	mu    sync.Mutex
	lists int
}

func newCountingStore(keys ...string) *countingStore {
	s := &countingStore{MemoryStore: cache.NewMemoryStore()}
	for _, k := range keys {
		_ = s.Set(context.Background(), k, "v")
	}
	return s
}

func (s *countingStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.MemoryStore.Keys(ctx)
}

func (s *countingStore) Lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func waitReady(t *testing.T, m *SessionManager) {
	t.Helper()
	select {
	case <-m.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("session manager never became ready")
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}
