package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/noah-isme/bookwyrm-admin/pkg/config"
)

// S3Storage keeps media in an S3-compatible bucket and serves it from the custom domain.
type S3Storage struct {
	client       *minio.Client
	bucket       string
	customDomain string
}

// NewS3Storage builds a client for AWS_S3_ENDPOINT_URL. No request is made until Check
// is called.
func NewS3Storage(cfg config.StorageConfig) (*S3Storage, error) {
	endpoint, err := url.Parse(cfg.EndpointURL)
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint %q", cfg.EndpointURL)
	}

	client, err := minio.New(endpoint.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: endpoint.Scheme != "http",
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &S3Storage{client: client, bucket: cfg.BucketName, customDomain: cfg.CustomDomain}, nil
}

// URL returns the object's address on the custom domain.
func (s *S3Storage) URL(name string) string {
	return joinURL("https://"+s.customDomain, name)
}

// Check verifies the bucket exists and the credentials can see it.
func (s *S3Storage) Check(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}
