package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallhub/internal/featureflags"
	"wallhub/internal/models"
	"wallhub/internal/observability"
	"wallhub/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// compensation undoes one completed upload step.
type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// uploadSaga tracks the completed steps of one upload.
type uploadSaga struct {
	steps []compensation
}

func (s *uploadSaga) done(step string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{step: step, undo: undo})
}

// rollback runs the compensations in reverse and joins their failures to
// cause. Compensations run even when ctx is already canceled.
func (s *uploadSaga) rollback(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			observability.LogCompensationError(ctx, c.step, err)
			observability.UploadCompensations.WithLabelValues(c.step, "failed").Inc()
			errs = append(errs, fmt.Errorf("rollback %s: %w", c.step, err))
			continue
		}
		observability.UploadCompensations.WithLabelValues(c.step, "ok").Inc()
	}
	return errors.Join(errs...)
}

// Upload validates file and meta, stores the object, records the row and
// bumps the uploader's counter. A failing step rolls back the completed
// ones. On success the catalog is refreshed.
func (m *CatalogManager) Upload(ctx context.Context, file validation.File, meta validation.Metadata) (*models.Image, error) {
	if !m.guard.Configured() {
		return nil, models.NewConfigurationError("Supabase is not configured. Please set up your environment variables to upload images.")
	}
	var user *models.User
	if m.identity != nil {
		user = m.identity.User()
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Must be authenticated to upload")
	}

	meta, err := validation.NormalizeMetadata(meta)
	if err != nil {
		observability.UploadRejections.WithLabelValues(validation.RuleName(err)).Inc()
		return nil, err
	}
	info, err := m.policy.Inspect(file)
	if err != nil {
		observability.UploadRejections.WithLabelValues(validation.RuleName(err)).Inc()
		return nil, err
	}

	ctx = observability.WithUserID(ctx, user.ID)
	ctx = observability.WithOperation(ctx, "catalog.upload")
	span, ctx := observability.NewSpan(ctx, "catalog.upload",
		attribute.String("mime", info.MIME),
		attribute.Int64("size", info.Size),
	)
	defer span.End()

	img, err := m.runUpload(ctx, user.ID, file, meta, info)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	m.Fetch(ctx)
	return img, nil
}

func (m *CatalogManager) runUpload(ctx context.Context, userID string, file validation.File, meta validation.Metadata, info *validation.Inspection) (*models.Image, error) {
	saga := &uploadSaga{}
	stamp := m.now().UnixMilli()

	key := fmt.Sprintf("%s/%d.%s", userID, stamp, info.Ext)
	if err := m.objects.Upload(ctx, key, file.Data, info.MIME); err != nil {
		return nil, models.NewBackendError("upload image", err)
	}
	saga.done("remove_object", func(ctx context.Context) error {
		return m.objects.Remove(ctx, key)
	})
	publicURL := m.objects.PublicURL(key)

	var thumbURL *string
	if m.flags.Enabled(featureflags.Thumbnails, userID) {
		thumbKey := fmt.Sprintf("%s/%d_thumb.webp", userID, stamp)
		if u, err := m.storeThumbnail(ctx, thumbKey, file.Data); err != nil {
			observability.Logger.WarnContext(ctx, "thumbnail generation failed",
				slog.String("key", thumbKey),
				slog.String("error", err.Error()),
			)
		} else {
			thumbURL = &u
			saga.done("remove_thumbnail", func(ctx context.Context) error {
				return m.objects.Remove(ctx, thumbKey)
			})
		}
	}

	var desc *string
	if meta.Description != "" {
		d := meta.Description
		desc = &d
	}
	row, err := m.table.Insert(ctx, models.NewImage{
		Title:        meta.Title,
		Description:  desc,
		ImageURL:     publicURL,
		ThumbnailURL: thumbURL,
		Tags:         meta.Tags,
		UploadedBy:   userID,
		FileSize:     info.Size,
		Width:        info.Width,
		Height:       info.Height,
	})
	if err != nil {
		return nil, saga.rollback(ctx, models.NewBackendError("save image metadata", err))
	}
	rowID := row.ID
	saga.done("delete_row", func(ctx context.Context) error {
		return m.table.Delete(ctx, rowID)
	})

	if err := m.rpc.IncrementUserUploads(ctx, userID); err != nil {
		return nil, saga.rollback(ctx, models.NewBackendError("update upload count", err))
	}

	observability.Logger.InfoContext(ctx, "image uploaded",
		slog.String("image_id", row.ID),
		slog.String("key", key),
	)
	return row, nil
}

func (m *CatalogManager) storeThumbnail(ctx context.Context, key string, data []byte) (string, error) {
	thumb, err := makeThumbnail(data, m.thumbW, m.thumbQ)
	if err != nil {
		return "", err
	}
	if err := m.objects.Upload(ctx, key, thumb, thumbnailContentType); err != nil {
		return "", err
	}
	return m.objects.PublicURL(key), nil
}
