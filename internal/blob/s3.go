package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hyperjump/sommelier/internal/resilience"
	"go.uber.org/zap"
)

// GetObjectAPI is the part of the S3 client the source needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds configuration for the S3 corpus source.
type S3Config struct {
	Region         string
	Bucket         string
	Key            string
	Endpoint       string
	ForcePathStyle bool
	RequestTimeout time.Duration
	Retry          resilience.RetryConfig
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// Endpoint and ForcePathStyle support S3-compatible services such as LocalStack or MinIO.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var options []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		options = append(options, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// S3Source fetches one fixed object.
type S3Source struct {
	client GetObjectAPI
	config S3Config
	logger *zap.Logger
}

// NewS3Source returns a source for cfg.Bucket/cfg.Key using client.
func NewS3Source(client GetObjectAPI, cfg S3Config, logger *zap.Logger) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	if cfg.Key == "" {
		return nil, errors.New("key cannot be empty")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Source{client: client, config: cfg, logger: logger}, nil
}

// Fetch downloads the object. Transient failures are retried; a missing bucket or key is not.
// The returned body may be nil if the object store sent none.
func (s *S3Source) Fetch(ctx context.Context) (io.ReadCloser, error) {
	retry := s.config.Retry
	retry.RetryIf = isRetryable
	retry.OnRetry = func(err error, wait time.Duration) {
		s.logger.Warn("corpus fetch failed, retrying",
			zap.String("bucket", s.config.Bucket),
			zap.String("key", s.config.Key),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	out, err := resilience.RetryWithResult(ctx, retry, func() (*s3.GetObjectOutput, error) {
		reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
		out, err := s.client.GetObject(reqCtx, &s3.GetObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(s.config.Key),
		})
		if err != nil {
			return nil, err
		}
		if out.Body == nil {
			return out, nil
		}
		// Read the body inside the request deadline so cancel does not cut it short.
		data, err := io.ReadAll(out.Body)
		_ = out.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read object body: %w", err)
		}
		out.Body = io.NopCloser(bytes.NewReader(data))
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.config.Bucket, s.config.Key, err)
	}
	return out.Body, nil
}

// String describes the source for logs.
func (s *S3Source) String() string {
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, s.config.Key)
}

func isRetryable(err error) bool {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
