// Package s3 implements the storage Backend for AWS S3 and
// S3-compatible services such as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mgoubin/screendrop/internal/storage"
)

// multipartUploadPartSize is the part size for multipart uploads (5MB
// is the S3 minimum).
const multipartUploadPartSize = 5 * 1024 * 1024

// Config holds configuration for the S3 backend.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Custom endpoint for MinIO or other S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool // Use path-style addressing (required for MinIO)
}

// S3Storage implements the storage Backend on top of an S3 bucket.
// Files uploaded before the backend was enabled may still live on the
// local disk, so reads fall back to the local path when the object is
// missing.
type S3Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3Storage creates a new S3Storage and verifies bucket access.
func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	var optFuncs []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		optFuncs = append(optFuncs, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFuncs = append(optFuncs, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFuncs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = multipartUploadPartSize
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %q: %w", cfg.Bucket, err)
	}

	slog.Info("S3 storage initialized",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"path_style", cfg.PathStyle,
	)

	return &S3Storage{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
	}, nil
}

// validateKey rejects keys that could escape the user's prefix.
func (s *S3Storage) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key not allowed")
	}
	if strings.ContainsRune(key, '\x00') {
		return fmt.Errorf("null bytes not allowed in key")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("path traversal not allowed: %s", key)
	}
	return nil
}

// SaveFile uploads the assembled file at localPath under key, then
// removes the local copy. Returns the key the object was stored at.
func (s *S3Storage) SaveFile(ctx context.Context, localPath, key string) (string, error) {
	if err := s.validateKey(key); err != nil {
		return "", storage.NewError("SaveFile", key, err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", storage.NewError("SaveFile", key, err)
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", storage.NewError("SaveFile", key, err)
	}

	// The object is the source of truth now. A failed local remove only
	// leaves a stray file behind, so it is logged and ignored.
	if err := os.Remove(localPath); err != nil {
		slog.Warn("failed to remove local copy after S3 upload", "path", localPath, "error", err)
	}

	slog.Debug("file uploaded to S3", "key", key)
	return key, nil
}

// Retrieve returns a reader for the object at key, falling back to the
// local path when the object does not exist.
func (s *S3Storage) Retrieve(ctx context.Context, key, localPath string) (io.ReadCloser, error) {
	if err := s.validateKey(key); err != nil {
		return nil, storage.NewError("Retrieve", key, err)
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			f, localErr := os.Open(localPath)
			if localErr != nil {
				return nil, storage.NewError("Retrieve", key, err)
			}
			return f, nil
		}
		return nil, storage.NewError("Retrieve", key, err)
	}

	return result.Body, nil
}

// Delete removes the object at key and any leftover local copy.
func (s *S3Storage) Delete(ctx context.Context, key, localPath string) error {
	if err := s.validateKey(key); err != nil {
		return storage.NewError("Delete", key, err)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return storage.NewError("Delete", key, err)
	}

	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storage.NewError("Delete", localPath, err)
	}

	slog.Debug("file deleted from S3", "key", key)
	return nil
}

// Exists checks whether the object at key exists, falling back to the
// local path.
func (s *S3Storage) Exists(ctx context.Context, key, localPath string) (bool, error) {
	if err := s.validateKey(key); err != nil {
		return false, storage.NewError("Exists", key, err)
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var nf *types.NotFound
	if !errors.As(err, &nf) {
		return false, storage.NewError("Exists", key, err)
	}

	if _, statErr := os.Stat(localPath); statErr == nil {
		return true, nil
	}
	return false, nil
}
