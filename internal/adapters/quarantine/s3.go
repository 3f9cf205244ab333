// Package quarantine implements ports.Quarantine against an S3-compatible
// bucket, grounded on the teacher's objectstore/s3.go client construction
// (region, static credentials, custom endpoint and path-style addressing
// for MinIO), narrowed to the single put/head pair quarantine needs.
package quarantine

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"knowledgeservice/internal/config"
)

const keyPrefix = "quarantine/"

// S3Quarantine moves infected resource bytes into a dedicated prefix of
// the configured bucket, out of the path any other reader uses.
type S3Quarantine struct {
	client *s3.Client
	bucket string
}

// New builds an S3-backed quarantine store from configuration.
func New(ctx context.Context, cfg config.S3Config) (*S3Quarantine, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("quarantine: s3 bucket is required")
	}
	awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("quarantine: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &S3Quarantine{client: s3.NewFromConfig(awsCfg, s3Opts...), bucket: cfg.Bucket}, nil
}

func (q *S3Quarantine) key(resourceID string) string { return keyPrefix + resourceID }

func (q *S3Quarantine) Quarantine(ctx context.Context, resourceID string, content []byte) error {
	_, err := q.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(q.bucket),
		Key:    aws.String(q.key(resourceID)),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return fmt.Errorf("quarantine: put object: %w", err)
	}
	return nil
}

func (q *S3Quarantine) IsQuarantined(ctx context.Context, resourceID string) (bool, error) {
	_, err := q.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(q.bucket),
		Key:    aws.String(q.key(resourceID)),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("quarantine: head object: %w", err)
	}
	return true, nil
}
