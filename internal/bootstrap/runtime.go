// Package bootstrap assembles the runtime: backend adapters selected by
// configuration, the artifact store, the fallback dataset and the managers.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"wallhub/internal/cache"
	"wallhub/internal/config"
	"wallhub/internal/database"
	"wallhub/internal/featureflags"
	"wallhub/internal/gateway"
	"wallhub/internal/gateway/rest"
	"wallhub/internal/models"
	"wallhub/internal/observability"
	"wallhub/internal/repository"
	"wallhub/internal/seed"
	"wallhub/internal/service"
	"wallhub/internal/storage"
	"wallhub/internal/validation"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime owns every long-lived component. Each manager is constructed
// exactly once.
type Runtime struct {
	Config    *config.Config
	Guard     config.Guard
	Backend   gateway.Backend
	Artifacts cache.ArtifactStore
	Flags     *featureflags.Manager
	Session   *service.SessionManager
	Catalog   *service.CatalogManager

	client *rest.Client
	db     *gorm.DB
	redis  *redis.Client
}

// InitRuntime builds the runtime described by cfg. Nothing contacts the
// backend until the session manager is started.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	items, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load fallback dataset: %w", err)
	}

	rt := &Runtime{
		Config: cfg,
		Guard:  config.GuardFromConfig(cfg),
		Flags:  featureflags.NewManager(cfg.FeatureFlags),
	}
	if !rt.Guard.Configured() {
		observability.Logger.Warn("backend credentials missing, running in demo mode",
			slog.String("reason", rt.Guard.Reason()))
	}

	rt.Backend, rt.client = rest.NewBackend(rest.Options{
		BaseURL: cfg.SupabaseURL,
		APIKey:  cfg.SupabaseAnonKey,
		Bucket:  cfg.StorageBucket,
		Timeout: cfg.HTTPTimeout(),
	})

	if err := rt.wireDatabase(); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.wireStorage(); err != nil {
		rt.Close()
		return nil, err
	}
	rt.wireArtifacts()

	rt.Session = service.NewSessionManager(rt.Backend.Auth, rt.Backend.Profiles, rt.Artifacts, rt.Guard, cfg.BootstrapTimeout())

	policy := validation.DefaultUploadPolicy()
	policy.MaxBytes = cfg.MaxUploadBytes()
	rt.Catalog = service.NewCatalogManager(service.CatalogOptions{
		Images:           rt.Backend.Images,
		Objects:          rt.Backend.Objects,
		RPC:              rt.Backend.RPC,
		Guard:            rt.Guard,
		Identity:         rt.Session,
		Seed:             items,
		Policy:           policy,
		Flags:            rt.Flags,
		ThumbnailWidth:   cfg.ThumbnailWidth,
		ThumbnailQuality: cfg.ThumbnailQuality,
	})

	return rt, nil
}

// wireDatabase swaps the row capabilities for direct Postgres access. Auth
// and the storage API stay on REST.
func (rt *Runtime) wireDatabase() error {
	if rt.Config.GatewayMode != config.GatewayDatabase || !rt.Guard.Configured() {
		return nil
	}
	db, err := database.Connect(rt.Config)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	rt.db = db
	rt.Backend.Images = repository.NewImageRepository(db)
	rt.Backend.Profiles = repository.NewProfileRepository(db)
	rt.Backend.Likes = repository.NewLikeRepository(db)
	rt.Backend.RPC = repository.NewProcedures(db)
	return nil
}

func (rt *Runtime) wireStorage() error {
	if rt.Config.StorageDriver != config.StorageS3 {
		return nil
	}
	store, err := storage.NewS3Store(storage.S3Options{
		Endpoint:        rt.Config.S3Endpoint,
		Region:          rt.Config.S3Region,
		AccessKeyID:     rt.Config.S3AccessKeyID,
		SecretAccessKey: rt.Config.S3SecretAccessKey,
		UseSSL:          rt.Config.S3UseSSL,
		Bucket:          rt.Config.StorageBucket,
	})
	if err != nil {
		return err
	}
	rt.Backend.Objects = store
	return nil
}

func (rt *Runtime) wireArtifacts() {
	if rdb := cache.InitRedis(rt.Config.RedisURL); rdb != nil {
		rt.redis = rdb
		rt.Artifacts = cache.NewRedisStore(rdb, "")
		return
	}
	rt.Artifacts = cache.NewMemoryStore()
}

// NewLikeManager returns a like manager for ref bound to the current session.
func (rt *Runtime) NewLikeManager(ref models.ImageRef) *service.LikeManager {
	return service.NewLikeManager(ref, rt.Backend.Likes, rt.Backend.RPC, rt.Guard, rt.Session)
}

// Close releases subscriptions, timers and connections.
func (rt *Runtime) Close() error {
	if rt.Session != nil {
		rt.Session.Close()
	}
	if rt.client != nil {
		rt.client.Close()
	}
	var errs []error
	if rt.db != nil {
		if err := database.Close(rt.db); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
