// Package s3 provides the object storage gateway backed by an S3-compatible
// endpoint via the MinIO client.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

// Store implements core.ObjectStore against an S3-compatible endpoint.
type Store struct {
	client *minio.Client
	logger *slog.Logger
}

var _ core.ObjectStore = (*Store)(nil)

// StoreOptions groups dependencies for Store.
type StoreOptions struct {
	Config config.StorageConfig
	Logger *slog.Logger
}

// NewStore constructs a Store from storage configuration.
func NewStore(opts StoreOptions) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := minio.New(opts.Config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.Config.AccessKey, opts.Config.SecretKey, ""),
		Secure: opts.Config.UseTLS,
		Region: opts.Config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Store{
		client: client,
		logger: logger.With("component", "object_store"),
	}, nil
}

// Fetch downloads the object identified by a "bucket/object" locator.
func (s *Store) Fetch(ctx context.Context, locator string) ([]byte, error) {
	bucket, object, err := model.SplitLocator(locator)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "fetch")
	}

	obj, err := s.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, "fetch "+locator)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(err, "read "+locator)
	}

	s.logger.DebugContext(ctx, "fetched object", "locator", locator, "bytes", len(data))
	return data, nil
}

// Store uploads data to the object identified by a "bucket/object" locator.
func (s *Store) Store(ctx context.Context, locator string, data []byte) error {
	bucket, object, err := model.SplitLocator(locator)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "store")
	}

	_, err = s.client.PutObject(
		ctx, bucket, object,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"},
	)
	if err != nil {
		return classify(err, "store "+locator)
	}

	s.logger.DebugContext(ctx, "stored object", "locator", locator, "bytes", len(data))
	return nil
}

// classify maps a storage error onto the shared taxonomy. Missing objects and
// buckets are not retryable, credential failures are not retryable, and
// everything else is assumed to be a transient network/storage hiccup.
func classify(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, msg)
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, msg)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return apperrors.Wrap(err, apperrors.ErrCodeAccessDenied, msg)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeTransient, msg)
	}
}
