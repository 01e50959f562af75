package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"aistudio/config"
	"aistudio/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps artifacts in a MinIO (or any S3 compatible) bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL *url.URL
}

var _ ArtifactStore = (*MinioStore)(nil)

// NewMinioStore connects to MinIO and creates the bucket when it is missing.
func NewMinioStore(ctx context.Context, cfg config.Minio) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.Bucket))
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, baseURL: client.EndpointURL()}, nil
}

func (s *MinioStore) Kind() string { return "minio" }

// Put uploads the artifact under the outputs/ prefix and returns its URL.
func (s *MinioStore) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	objectName := "outputs/" + name
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to MinIO: %w", objectName, err)
	}
	return s.baseURL.JoinPath(s.bucket, objectName).String(), nil
}

// Stats reports the number of stored artifacts and their total size.
func (s *MinioStore) Stats(ctx context.Context) (objects int, totalSize int64, err error) {
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: "outputs/", Recursive: true}) {
		if obj.Err != nil {
			return 0, 0, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		objects++
		totalSize += obj.Size
	}
	return objects, totalSize, nil
}
