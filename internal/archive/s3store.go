package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sentrywatch/siemcore/internal/config"
)

// s3API is the subset of *s3.Client this package depends on, narrowed so
// tests can substitute a fake without a live bucket.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements ObjectStore against a real AWS S3 bucket or any
// S3-API-compatible endpoint (MinIO) configured with a custom base
// endpoint and path-style addressing.
type S3Store struct {
	client s3API
	bucket string
}

// NewFromConfig builds the configured object store: S3 when
// cfg.StorageType is "s3" using ambient AWS credentials/region, or MinIO
// when "minio" using the static access/secret key pair and custom
// endpoint, both sharing the same S3 client implementation since MinIO
// speaks the S3 API.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig) (*S3Store, error) {
	switch cfg.StorageType {
	case "s3":
		return newS3(ctx, cfg)
	case "minio":
		return newMinIO(ctx, cfg)
	default:
		return nil, fmt.Errorf("archive: unsupported storage_type %q", cfg.StorageType)
	}
}

func newS3(ctx context.Context, cfg config.ArchiveConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("archive: load AWS config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}, nil
}

func newMinIO(ctx context.Context, cfg config.ArchiveConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cmp(cfg.Region, "us-east-1")),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("archive: load MinIO config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func cmp(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// PutObject implements ObjectStore.
func (s *S3Store) PutObject(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: put object %s/%s: %w", s.bucket, key, err)
	}
	return nil
}
