package feed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectGetter opens an object for reading. It allows mocking the S3 client in tests.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type minioGetter struct {
	client *minio.Client
}

func (g *minioGetter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return g.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

// S3Source reads the snapshot document from an S3-compatible bucket.
type S3Source struct {
	getter    ObjectGetter
	bucket    string
	key       string
	validator *validator.Validate
}

// NewS3Source connects a MinIO client using cfg.
func NewS3Source(cfg config.S3Config) (*S3Source, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.Key == "" {
		return nil, errors.New("missing one or more required s3 settings: endpoint, bucket, key")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	logger.WithComponent("feed").Infof("snapshot source: s3://%s/%s at %s", cfg.Bucket, cfg.Key, cfg.Endpoint)
	return NewS3SourceWithGetter(&minioGetter{client: client}, cfg.Bucket, cfg.Key), nil
}

// NewS3SourceWithGetter creates an S3Source on top of an existing getter.
func NewS3SourceWithGetter(getter ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{getter: getter, bucket: bucket, key: key, validator: validator.New()}
}

// Fetch implements Source.
func (s *S3Source) Fetch(ctx context.Context) (*Snapshot, error) {
	object, err := s.getter.GetObject(ctx, s.bucket, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: get object %s/%s: %w", model.ErrTransport, s.bucket, s.key, err)
	}
	defer object.Close()

	// minio reports missing objects and auth failures on first read.
	data, err := io.ReadAll(io.LimitReader(object, maxSnapshotBytes+1))
	if err != nil {
		if code := minio.ToErrorResponse(err).Code; code != "" {
			return nil, fmt.Errorf("%w: read object %s/%s: %s: %w", model.ErrTransport, s.bucket, s.key, code, err)
		}
		return nil, fmt.Errorf("%w: read object %s/%s: %w", model.ErrTransport, s.bucket, s.key, err)
	}

	return decodeSnapshot(data, s.validator)
}
