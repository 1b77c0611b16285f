package service

import (
	"context"
	"errors"
	"testing"

	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLikes(backend *testutil.MemoryBackend, ref models.ImageRef, user *models.User) *LikeManager {
	be := backend.Backend()
	return NewLikeManager(ref, be.Likes, be.RPC, configured, staticIdentity{user: user})
}

func TestLikeManager_SeededImage(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	m := newLikes(backend, models.ParseImageRef("demo-4"), testutil.FakeUser())

	count := m.Count()
	assert.GreaterOrEqual(t, count, 10)
	assert.Less(t, count, 110)

	m.Init(context.Background())
	assert.Equal(t, count, m.Count())
	assert.False(t, m.Liked())
	assert.False(t, m.CanLike())

	requireCode(t, m.Toggle(context.Background()), models.CodeCapability)
	assert.Equal(t, count, m.Count())
	assert.Empty(t, backend.Calls())
}

func TestLikeManager_Init(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	backend.SeedLike("img-1", user.ID)
	backend.SeedLike("img-1", "someone-else")

	m := newLikes(backend, models.ParseImageRef("img-1"), user)
	m.Init(context.Background())

	assert.Equal(t, 2, m.Count())
	assert.True(t, m.Liked())
	assert.False(t, m.Loading())
	assert.NoError(t, m.Err())

	anon := newLikes(backend, models.ParseImageRef("img-1"), nil)
	anon.Init(context.Background())
	assert.Equal(t, 2, anon.Count())
	assert.False(t, anon.Liked())
	assert.Equal(t, 1, backend.CallCount(testutil.OpUserLiked))
}

func TestLikeManager_InitFailure(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	backend.FailOn(testutil.OpLikeCount, errors.New("rpc missing"))

	m := newLikes(backend, models.ParseImageRef("img-1"), testutil.FakeUser())
	m.Init(context.Background())

	requireCode(t, m.Err(), models.CodeBackend)
	assert.False(t, m.Loading())
	assert.Zero(t, m.Count())
}

func TestLikeManager_Toggle(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	backend.SeedLike("img-1", "someone-else")

	m := newLikes(backend, models.ParseImageRef("img-1"), user)
	m.Init(context.Background())
	require.Equal(t, 1, m.Count())
	require.True(t, m.CanLike())

	require.NoError(t, m.Toggle(context.Background()))
	assert.True(t, m.Liked())
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, 2, backend.LikeCount("img-1"))

	require.NoError(t, m.Toggle(context.Background()))
	assert.False(t, m.Liked())
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 1, backend.LikeCount("img-1"))
}

func TestLikeManager_ToggleFailureKeepsState(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	m := newLikes(backend, models.ParseImageRef("img-1"), user)
	m.Init(context.Background())

	backend.FailOn(testutil.OpInsertLike, errors.New("timeout"))
	requireCode(t, m.Toggle(context.Background()), models.CodeBackend)
	assert.False(t, m.Liked())
	assert.Zero(t, m.Count())
}

func TestLikeManager_DuplicateInsertIsAFailure(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	m := newLikes(backend, models.ParseImageRef("img-1"), user)

	// Liked on the backend but the manager was never initialized.
	backend.SeedLike("img-1", user.ID)
	err := m.Toggle(context.Background())
	requireCode(t, err, models.CodeBackend)
	assert.ErrorIs(t, err, gateway.ErrDuplicate)
	assert.False(t, m.Liked())
}

func TestLikeManager_StaleUnlikeIsAFailure(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	backend.SeedLike("img-1", user.ID)

	first := newLikes(backend, models.ParseImageRef("img-1"), user)
	second := newLikes(backend, models.ParseImageRef("img-1"), user)
	first.Init(context.Background())
	second.Init(context.Background())
	require.True(t, second.Liked())

	require.NoError(t, first.Toggle(context.Background()))
	assert.False(t, first.Liked())
	assert.Zero(t, backend.LikeCount("img-1"))

	err := second.Toggle(context.Background())
	requireCode(t, err, models.CodeBackend)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.True(t, second.Liked())
	assert.Equal(t, 1, second.Count())
	assert.Zero(t, backend.LikeCount("img-1"))
}

func TestLikeManager_ReloadsForNewUser(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	backend.SeedLike("img-1", user.ID)

	identity := &staticIdentity{}
	be := backend.Backend()
	m := NewLikeManager(models.ParseImageRef("img-1"), be.Likes, be.RPC, configured, identity)
	m.Init(context.Background())
	require.False(t, m.Liked())
	require.Equal(t, 1, m.Count())

	identity.user = user
	require.NoError(t, m.Refresh(context.Background()))
	assert.True(t, m.Liked())
	assert.Equal(t, 2, backend.CallCount(testutil.OpLikeCount))

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, 2, backend.CallCount(testutil.OpLikeCount))
}

func TestLikeManager_ToggleAfterSignInUnlikes(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	backend.SeedLike("img-1", user.ID)

	identity := &staticIdentity{}
	be := backend.Backend()
	m := NewLikeManager(models.ParseImageRef("img-1"), be.Likes, be.RPC, configured, identity)
	m.Init(context.Background())

	identity.user = user
	require.NoError(t, m.Toggle(context.Background()))
	assert.False(t, m.Liked())
	assert.Zero(t, m.Count())
	assert.Zero(t, backend.LikeCount("img-1"))
}

func TestLikeManager_CountNeverNegative(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	user := testutil.FakeUser()
	backend.SeedLike("img-1", user.ID)
	m := newLikes(backend, models.ParseImageRef("img-1"), user)
	m.liked = true

	require.NoError(t, m.Toggle(context.Background()))
	assert.Zero(t, m.Count())
	assert.False(t, m.Liked())
}

func TestLikeManager_CanLike(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	be := backend.Backend()
	user := testutil.FakeUser()
	persisted := models.ParseImageRef("img-1")

	assert.True(t, NewLikeManager(persisted, be.Likes, be.RPC, configured, staticIdentity{user}).CanLike())
	assert.False(t, NewLikeManager(persisted, be.Likes, be.RPC, unconfigured, staticIdentity{user}).CanLike())
	assert.False(t, NewLikeManager(persisted, be.Likes, be.RPC, configured, staticIdentity{}).CanLike())
	assert.False(t, NewLikeManager(persisted, be.Likes, be.RPC, configured, nil).CanLike())

	m := NewLikeManager(persisted, be.Likes, be.RPC, unconfigured, staticIdentity{user})
	requireCode(t, m.Toggle(context.Background()), models.CodeCapability)
	assert.Empty(t, backend.Calls())
}
