package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lesson-insights-api/apperr"
	"lesson-insights-api/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// objectAPI is the subset of *s3.Client the storage client uses.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Client uploads lesson audio to a single bucket and removes it afterwards.
type Client struct {
	api    objectAPI
	bucket string
	scheme string
	logger *zap.Logger
}

// New builds a Cloud Storage client speaking the S3-compatible XML API.
func New(ctx context.Context, cfg config.StorageConfig, bucket string, logger *zap.Logger) (*Client, error) {
	if bucket == "" {
		return nil, apperr.Validation("storage", errors.New("bucket name is required"))
	}

	sugar := logger.Sugar()
	sugar.Infow("Initializing cloud storage service",
		"project", cfg.ProjectID,
		"bucket", bucket,
		"endpoint", cfg.Endpoint)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage configuration: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// Cloud Storage rejects the SDK's default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return NewWithAPI(api, bucket, cfg.URIScheme, logger), nil
}

// NewWithAPI wraps an existing object API.
func NewWithAPI(api objectAPI, bucket, scheme string, logger *zap.Logger) *Client {
	if scheme == "" {
		scheme = "gs"
	}
	return &Client{
		api:    api,
		bucket: bucket,
		scheme: scheme,
		logger: logger,
	}
}

// URI returns the address the recognizer reads blobName from.
func (c *Client) URI(blobName string) string {
	return fmt.Sprintf("%s://%s/%s", c.scheme, c.bucket, blobName)
}

// Upload copies localPath into the bucket and returns the blob URI. An empty
// blobName defaults to the file's base name. Existing objects are overwritten.
func (c *Client) Upload(ctx context.Context, localPath, blobName string) (string, error) {
	if blobName == "" {
		blobName = filepath.Base(localPath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", apperr.Validation("upload", fmt.Errorf("open audio file: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", apperr.Validation("upload", fmt.Errorf("stat audio file: %w", err))
	}
	if info.IsDir() {
		return "", apperr.Validation("upload", fmt.Errorf("%s is a directory", localPath))
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(blobName),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", apperr.Transport("upload", fmt.Errorf("put object failed: %w", err))
	}

	c.logger.Info("Uploaded audio file",
		zap.String("source", localPath),
		zap.String("blob", blobName),
		zap.Int64("size_bytes", info.Size()))

	return c.URI(blobName), nil
}

// Delete removes blobName from the bucket.
func (c *Client) Delete(ctx context.Context, blobName string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(blobName),
	})
	if err != nil {
		return apperr.Transport("delete", fmt.Errorf("delete object failed: %w", err))
	}

	c.logger.Info("Deleted blob", zap.String("blob", blobName))
	return nil
}

// Exists reports whether blobName is present in the bucket.
func (c *Client) Exists(ctx context.Context, blobName string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(blobName),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, apperr.Transport("head object", err)
	}
	return true, nil
}
