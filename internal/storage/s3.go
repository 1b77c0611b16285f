// Package storage implements the object store capability over the S3
// protocol for deployments that keep uploads outside the REST backend.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"wallhub/internal/observability"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const objectCacheControl = "max-age=3600"

// ClientMinio is the subset of *minio.Client the store uses.
type ClientMinio interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// S3Options configures an S3Store.
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
}

// S3Store stores uploads in one bucket with path-style public URLs.
type S3Store struct {
	client  ClientMinio
	bucket  string
	baseURL string
}

// NewS3Store connects to the S3 endpoint described by opts.
func NewS3Store(opts S3Options) (*S3Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return newS3Store(client, opts), nil
}

func newS3Store(client ClientMinio, opts S3Options) *S3Store {
	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	return &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: scheme + "://" + strings.TrimRight(opts.Endpoint, "/"),
	}
}

// Upload stores body under key.
func (s *S3Store) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	defer observability.TrackGateway("storage", "upload")()

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: objectCacheControl,
	})
	if err != nil {
		observability.RecordBackendError("storage", "upload")
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// PublicURL is the path-style URL of key.
func (s *S3Store) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + s.bucket + "/" + strings.Join(parts, "/")
}

// Remove deletes every key and reports all failures together.
func (s *S3Store) Remove(ctx context.Context, keys ...string) error {
	defer observability.TrackGateway("storage", "remove")()

	var errs []error
	for _, key := range keys {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			observability.Logger.WarnContext(ctx, "failed to remove object",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("remove object %s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		observability.RecordBackendError("storage", "remove")
	}
	return errors.Join(errs...)
}
