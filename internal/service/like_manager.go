package service

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"wallhub/internal/config"
	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/observability"
)

// Seeded images show a stable pseudo-random count in [seedLikeBase, seedLikeBase+seedLikeSpread).
const (
	seedLikeBase   = 10
	seedLikeSpread = 100
)

// LikeManager tracks the like count and the current user's like for one
// image. Local state changes only after the backend confirms a toggle.
type LikeManager struct {
	ref      models.ImageRef
	likes    gateway.LikeTable
	procs    gateway.Procedures
	guard    config.Guard
	identity Identity

	mu        sync.RWMutex
	count     int
	liked     bool
	loading   bool
	err       error
	loaded    bool
	loadedFor string
}

// NewLikeManager creates a manager for ref. Seeded images get their fixed
// count here and never contact the backend.
func NewLikeManager(ref models.ImageRef, likes gateway.LikeTable, procs gateway.Procedures, guard config.Guard, identity Identity) *LikeManager {
	m := &LikeManager{
		ref:      ref,
		likes:    likes,
		procs:    procs,
		guard:    guard,
		identity: identity,
	}
	if ref.Seeded() {
		m.count = rand.Intn(seedLikeSpread) + seedLikeBase
	}
	return m
}

// Init loads the count and, when signed in, whether the user liked the image.
// The load is tied to the user current at the time of the call.
func (m *LikeManager) Init(ctx context.Context) {
	if m.ref.Seeded() || !m.guard.Configured() {
		return
	}

	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	ctx = observability.WithOperation(ctx, "likes.init")
	count, err := m.procs.ImageLikeCount(ctx, m.ref.ID)
	if err != nil {
		m.fail(ctx, "load like count", err)
		return
	}

	liked := false
	userID := ""
	if user := m.currentUser(); user != nil {
		userID = user.ID
		liked, err = m.procs.UserLikedImage(ctx, m.ref.ID, user.ID)
		if err != nil {
			m.fail(ctx, "load like status", err)
			return
		}
	}

	m.mu.Lock()
	m.count = count
	m.liked = liked
	m.loading = false
	m.err = nil
	m.loaded = true
	m.loadedFor = userID
	m.mu.Unlock()
}

// Refresh re-runs Init when the current user differs from the one the last
// successful load was made for, so a sign-in or sign-out after construction
// picks up the right like status.
func (m *LikeManager) Refresh(ctx context.Context) error {
	if m.ref.Seeded() || !m.guard.Configured() {
		return nil
	}
	userID := ""
	if user := m.currentUser(); user != nil {
		userID = user.ID
	}

	m.mu.RLock()
	stale := !m.loaded || m.loadedFor != userID
	m.mu.RUnlock()
	if !stale {
		return nil
	}

	m.Init(ctx)
	return m.Err()
}

func (m *LikeManager) fail(ctx context.Context, op string, err error) {
	observability.Logger.WarnContext(ctx, "failed to "+op,
		slog.String("image_id", m.ref.ID),
		slog.String("error", err.Error()),
	)
	m.mu.Lock()
	m.loading = false
	m.err = models.NewBackendError(op, err)
	m.mu.Unlock()
}

// Toggle likes or unlikes the image for the current user, reloading first
// when the last load was made for a different user.
func (m *LikeManager) Toggle(ctx context.Context) error {
	user := m.currentUser()
	if user == nil || !m.guard.Configured() || m.ref.Seeded() {
		return models.NewCapabilityError("Authentication required or demo image")
	}

	m.mu.RLock()
	stale := m.loaded && m.loadedFor != user.ID
	m.mu.RUnlock()
	if stale {
		if err := m.Refresh(ctx); err != nil {
			return err
		}
	}

	m.mu.RLock()
	liked := m.liked
	m.mu.RUnlock()

	ctx = observability.WithUserID(ctx, user.ID)
	ctx = observability.WithOperation(ctx, "likes.toggle")
	if liked {
		if err := m.likes.Delete(ctx, m.ref.ID, user.ID); err != nil {
			return models.NewBackendError("unlike image", err)
		}
		m.mu.Lock()
		m.liked = false
		m.count = max(m.count-1, 0)
		m.mu.Unlock()
		return nil
	}

	if err := m.likes.Insert(ctx, m.ref.ID, user.ID); err != nil {
		return models.NewBackendError("like image", err)
	}
	m.mu.Lock()
	m.liked = true
	m.count++
	m.mu.Unlock()
	return nil
}

// CanLike reports whether Toggle may succeed.
func (m *LikeManager) CanLike() bool {
	return m.currentUser() != nil && m.guard.Configured() && !m.ref.Seeded()
}

func (m *LikeManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

func (m *LikeManager) Liked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.liked
}

func (m *LikeManager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *LikeManager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *LikeManager) currentUser() *models.User {
	if m.identity == nil {
		return nil
	}
	return m.identity.User()
}
