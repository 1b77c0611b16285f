package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallhub/internal/config"
	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/seed"
	"wallhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(backend *testutil.MemoryBackend, guard config.Guard, user *models.User) *CatalogManager {
	be := backend.Backend()
	return NewCatalogManager(CatalogOptions{
		Images:   be.Images,
		Objects:  be.Objects,
		RPC:      be.RPC,
		Guard:    guard,
		Identity: staticIdentity{user: user},
		Now:      fixedClock,
	})
}

func titles(images []models.Image) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.Title
	}
	return out
}

func TestWrapAsCatalog(t *testing.T) {
	now := fixedClock()
	items := seed.Default()
	wrapped := wrapAsCatalog(items, now)

	require.Len(t, wrapped, len(items))
	for i, img := range wrapped {
		assert.True(t, img.Seeded())
		assert.Equal(t, models.ParseImageRef(img.ID), img.Ref())
		assert.Equal(t, now.Add(-time.Duration(i)*24*time.Hour), img.CreatedAt)
		assert.Equal(t, img.CreatedAt, img.UpdatedAt)
		if i > 0 {
			assert.True(t, wrapped[i-1].CreatedAt.After(img.CreatedAt))
		}
	}
	assert.Equal(t, "demo-0", wrapped[0].ID)
	assert.Equal(t, items[0].Title, wrapped[0].Title)
	require.NotNil(t, wrapped[0].Width)
	assert.Equal(t, items[0].Width, *wrapped[0].Width)
}

func TestMatchesQuery(t *testing.T) {
	desc := "Calm BLUE lagoon at dusk"
	img := models.Image{Title: "Lagoon", Description: &desc, Tags: []string{"tropical", "water"}}

	tests := []struct {
		q    string
		want bool
	}{
		{"lagoon", true},
		{"blue", true},
		{"TROP", true},
		{"ater", true},
		{"  ", true},
		{"desert", false},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesQuery(img, tt.q))
		})
	}
	assert.False(t, matchesQuery(models.Image{Title: "x"}, "lagoon"))
}

func TestCatalogManager_FetchUnconfigured(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	m := newCatalog(backend, unconfigured, nil)

	images := m.Fetch(context.Background())
	require.Len(t, images, len(seed.Default()))
	assert.Equal(t, "demo-0", images[0].ID)
	assert.NoError(t, m.Err())
	assert.False(t, m.Loading())
	assert.Equal(t, images, m.Images())
	assert.Empty(t, backend.Calls())
}

func TestCatalogManager_FetchEmptyBackendFallsBack(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	m := newCatalog(backend, configured, nil)

	images := m.Fetch(context.Background())
	assert.Len(t, images, len(seed.Default()))
	assert.True(t, images[0].Seeded())
	assert.NoError(t, m.Err())
	assert.Equal(t, 1, backend.CallCount(testutil.OpListImages))
}

func TestCatalogManager_FetchErrorFallsBack(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	backend.FailOn(testutil.OpListImages, errors.New("connection refused"))
	m := newCatalog(backend, configured, nil)

	images := m.Fetch(context.Background())
	assert.Len(t, images, len(seed.Default()))
	requireCode(t, m.Err(), models.CodeBackend)

	backend.FailOn(testutil.OpListImages, nil)
	backend.SeedImages(testutil.FakeImage("u-1", fixedClock()))
	images = m.Fetch(context.Background())
	assert.Len(t, images, 1)
	assert.NoError(t, m.Err())
}

func TestCatalogManager_FetchNewestFirst(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	now := fixedClock()
	older := testutil.FakeImage("u-1", now.Add(-time.Hour))
	newer := testutil.FakeImage("u-2", now)
	backend.SeedImages(older, newer)
	m := newCatalog(backend, configured, nil)

	images := m.Fetch(context.Background())
	require.Len(t, images, 2)
	assert.Equal(t, newer.ID, images[0].ID)
	assert.Equal(t, older.ID, images[1].ID)
	assert.False(t, images[0].Seeded())
}

func TestCatalogManager_SearchFallback(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	m := newCatalog(backend, unconfigured, nil)

	images := m.Search(context.Background(), "Ocean")
	assert.Equal(t, []string{"Ocean Wave Power", "Tropical Paradise Beach"}, titles(images))

	assert.Empty(t, m.Search(context.Background(), "no-such-wallpaper"))
	assert.Len(t, m.Search(context.Background(), "   "), len(seed.Default()))
}

func TestCatalogManager_SearchLive(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	now := fixedClock()
	match := testutil.FakeImage("u-1", now)
	match.Title = "Misty fjord"
	tagged := testutil.FakeImage("u-1", now.Add(-time.Minute))
	tagged.Tags = []string{"fjord"}
	other := testutil.FakeImage("u-1", now.Add(-time.Hour))
	other.Title = "Desert"
	other.Tags = []string{"sand"}
	backend.SeedImages(match, tagged, other)
	m := newCatalog(backend, configured, nil)

	images := m.Search(context.Background(), "fjord")
	require.Len(t, images, 2)
	assert.Equal(t, match.ID, images[0].ID)
	assert.Equal(t, tagged.ID, images[1].ID)
}

func TestCatalogManager_BlankSearchEqualsFetch(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	now := fixedClock()
	backend.SeedImages(
		testutil.FakeImage("u-1", now.Add(-2*time.Hour)),
		testutil.FakeImage("u-2", now),
		testutil.FakeImage("u-1", now.Add(-time.Hour)),
	)

	for name, guard := range map[string]config.Guard{"configured": configured, "unconfigured": unconfigured} {
		t.Run(name, func(t *testing.T) {
			m := newCatalog(backend, guard, nil)
			fetched := m.Fetch(context.Background())
			require.NotEmpty(t, fetched)

			for _, q := range []string{"", "   "} {
				assert.Equal(t, fetched, m.Search(context.Background(), q))
				assert.Equal(t, fetched, m.Images())
			}
		})
	}
}

func TestCatalogManager_SearchLiveTagIgnoresCase(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	img := testutil.FakeImage("u-1", fixedClock())
	img.Title = "Blue hour"
	img.Description = nil
	img.Tags = []string{"ocean"}
	backend.SeedImages(img)
	m := newCatalog(backend, configured, nil)

	images := m.Search(context.Background(), "OCEAN")
	require.Len(t, images, 1)
	assert.Equal(t, img.ID, images[0].ID)
}

// slowTable blocks List calls for one query until released.
type slowTable struct {
	gateway.ImageTable
	query   string
	entered chan struct{}
	release chan struct{}
}

func (s *slowTable) List(ctx context.Context, filter gateway.ImageFilter) ([]models.Image, error) {
	if filter.Query == s.query {
		close(s.entered)
		<-s.release
	}
	return s.ImageTable.List(ctx, filter)
}

func TestCatalogManager_LastIssuedReadWins(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	now := fixedClock()
	fjord := testutil.FakeImage("u-1", now)
	fjord.Title = "fjord"
	backend.SeedImages(fjord, testutil.FakeImage("u-1", now.Add(-time.Hour)))

	table := &slowTable{
		ImageTable: backend.Backend().Images,
		query:      "fjord",
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	m := NewCatalogManager(CatalogOptions{Images: table, Guard: configured, Now: fixedClock})

	var wg sync.WaitGroup
	wg.Add(1)
	var stale []models.Image
	go func() {
		defer wg.Done()
		stale = m.Search(context.Background(), "fjord")
	}()
	<-table.entered

	latest := m.Fetch(context.Background())
	require.Len(t, latest, 2)

	close(table.release)
	wg.Wait()

	assert.Len(t, stale, 1)
	assert.Equal(t, latest, m.Images())
	assert.False(t, m.Loading())
}

func TestCatalogManager_Delete(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	img := testutil.FakeImage("u-1", fixedClock())
	backend.SeedImages(img)

	t.Run("seeded images are read only", func(t *testing.T) {
		m := newCatalog(backend, configured, nil)
		before := len(backend.Calls())
		err := m.Delete(context.Background(), models.ParseImageRef("demo-3"))
		requireCode(t, err, models.CodeCapability)
		assert.Equal(t, "Cannot delete demo images", models.UserMessage(err))
		assert.Len(t, backend.Calls(), before)
	})

	t.Run("unconfigured", func(t *testing.T) {
		m := newCatalog(backend, unconfigured, nil)
		err := m.Delete(context.Background(), img.Ref())
		requireCode(t, err, models.CodeConfiguration)
	})

	t.Run("backend failure", func(t *testing.T) {
		backend.FailOn(testutil.OpDeleteImage, errors.New("permission denied"))
		defer backend.FailOn(testutil.OpDeleteImage, nil)
		m := newCatalog(backend, configured, nil)
		requireCode(t, m.Delete(context.Background(), img.Ref()), models.CodeBackend)
	})

	t.Run("persisted image", func(t *testing.T) {
		m := newCatalog(backend, configured, nil)
		require.NoError(t, m.Delete(context.Background(), img.Ref()))
		assert.Empty(t, backend.Images())
		assert.True(t, m.Images()[0].Seeded())
	})
}

func TestCatalogManager_GetUserImages(t *testing.T) {
	backend := testutil.NewMemoryBackend()
	now := fixedClock()
	mine := testutil.FakeImage("u-1", now)
	theirs := testutil.FakeImage("u-2", now)
	backend.SeedImages(mine, theirs)

	m := newCatalog(backend, configured, nil)
	images := m.GetUserImages(context.Background(), "u-1")
	require.Len(t, images, 1)
	assert.Equal(t, mine.ID, images[0].ID)

	assert.Empty(t, newCatalog(backend, unconfigured, nil).GetUserImages(context.Background(), "u-1"))

	backend.FailOn(testutil.OpListImages, errors.New("boom"))
	assert.Empty(t, m.GetUserImages(context.Background(), "u-1"))
}
