package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"wallhub/internal/config"
	"wallhub/internal/featureflags"
	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/observability"
	"wallhub/internal/seed"
	"wallhub/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Thumbnail defaults.
const (
	DefaultThumbnailWidth   = 640
	DefaultThumbnailQuality = 80
)

// CatalogOptions wires a CatalogManager.
type CatalogOptions struct {
	Images   gateway.ImageTable
	Objects  gateway.ObjectStore
	RPC      gateway.Procedures
	Guard    config.Guard
	Identity Identity
	Seed     []seed.Item
	Policy   validation.UploadPolicy
	Flags    *featureflags.Manager

	ThumbnailWidth   int
	ThumbnailQuality int

	// Now is the clock used for seeded timestamps and object keys.
	Now func() time.Time
}

// CatalogManager owns the displayed image list. Reads never fail: when the
// backend is unconfigured, empty or failing, the fallback dataset is shown.
// Concurrent reads are sequenced so the most recently issued one wins.
type CatalogManager struct {
	table    gateway.ImageTable
	objects  gateway.ObjectStore
	rpc      gateway.Procedures
	guard    config.Guard
	identity Identity
	seed     []seed.Item
	policy   validation.UploadPolicy
	flags    *featureflags.Manager
	thumbW   int
	thumbQ   int
	now      func() time.Time

	seq atomic.Uint64

	mu      sync.RWMutex
	images  []models.Image
	loading bool
	err     error
}

// NewCatalogManager creates a manager with an empty list.
func NewCatalogManager(opts CatalogOptions) *CatalogManager {
	m := &CatalogManager{
		table:    opts.Images,
		objects:  opts.Objects,
		rpc:      opts.RPC,
		guard:    opts.Guard,
		identity: opts.Identity,
		seed:     opts.Seed,
		policy:   opts.Policy,
		flags:    opts.Flags,
		thumbW:   opts.ThumbnailWidth,
		thumbQ:   opts.ThumbnailQuality,
		now:      opts.Now,
	}
	if m.seed == nil {
		m.seed = seed.Default()
	}
	if m.policy == (validation.UploadPolicy{}) {
		m.policy = validation.DefaultUploadPolicy()
	}
	if m.thumbW <= 0 {
		m.thumbW = DefaultThumbnailWidth
	}
	if m.thumbQ <= 0 {
		m.thumbQ = DefaultThumbnailQuality
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Images returns a copy of the current list.
func (m *CatalogManager) Images() []models.Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Image(nil), m.images...)
}

// Loading reports whether the most recent read is still in flight.
func (m *CatalogManager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Err returns the backend failure recorded by the most recent read.
func (m *CatalogManager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Fetch loads the full catalog newest first and publishes it.
func (m *CatalogManager) Fetch(ctx context.Context) []models.Image {
	return m.read(ctx, "fetch", "")
}

// Search loads the images matching q. A blank q is a Fetch.
func (m *CatalogManager) Search(ctx context.Context, q string) []models.Image {
	q = strings.TrimSpace(q)
	if q == "" {
		return m.Fetch(ctx)
	}
	return m.read(ctx, "search", q)
}

// read runs one fallback-chain read and publishes the result only when no
// later read was issued in the meantime. It returns this read's result.
func (m *CatalogManager) read(ctx context.Context, operation, q string) []models.Image {
	seq := m.seq.Add(1)
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	ctx = observability.WithOperation(ctx, "catalog."+operation)
	span, ctx := observability.NewSpan(ctx, "catalog."+operation, attribute.String("query", q))
	defer span.End()

	images, err := m.load(ctx, operation, q)
	if err != nil {
		span.SetError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq.Load() {
		observability.Logger.DebugContext(ctx, "discarding superseded catalog read")
		return images
	}
	m.images = images
	m.err = err
	m.loading = false
	return append([]models.Image(nil), images...)
}

func (m *CatalogManager) load(ctx context.Context, operation, q string) ([]models.Image, error) {
	if !m.guard.Configured() {
		return m.fallback(operation, "unconfigured", q), nil
	}

	rows, err := m.table.List(ctx, gateway.ImageFilter{Query: q})
	if err != nil {
		observability.LogBackendFallback(ctx, operation, err)
		return m.fallback(operation, "error", q), models.NewBackendError(operation+" images", err)
	}
	if len(rows) == 0 {
		return m.fallback(operation, "empty", q), nil
	}
	return rows, nil
}

func (m *CatalogManager) fallback(operation, reason, q string) []models.Image {
	observability.CatalogFallbacks.WithLabelValues(operation, reason).Inc()
	return filterCatalog(wrapAsCatalog(m.seed, m.now()), q)
}

// Delete removes a persisted image and refreshes the list. Seeded images are
// rejected without contacting the backend.
func (m *CatalogManager) Delete(ctx context.Context, ref models.ImageRef) error {
	if ref.Seeded() {
		return models.NewCapabilityError("Cannot delete demo images")
	}
	if !m.guard.Configured() {
		return models.NewConfigurationError("Supabase is not configured.")
	}

	ctx = observability.WithOperation(ctx, "catalog.delete")
	if err := m.table.Delete(ctx, ref.ID); err != nil {
		return models.NewBackendError("delete image", err)
	}
	m.Fetch(ctx)
	return nil
}

// GetUserImages returns the images uploaded by userID, newest first. It is
// empty when the backend is unconfigured or the read fails.
func (m *CatalogManager) GetUserImages(ctx context.Context, userID string) []models.Image {
	if !m.guard.Configured() || userID == "" {
		return []models.Image{}
	}
	rows, err := m.table.List(ctx, gateway.ImageFilter{UploadedBy: userID})
	if err != nil {
		observability.Logger.WarnContext(ctx, "failed to fetch user images",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return []models.Image{}
	}
	return rows
}
