// Package storage archives uploaded resume files in S3-compatible object
// storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ResumeStore stores resume files by key.
type ResumeStore interface {
	PutResume(ctx context.Context, key, contentType string, data []byte) error
}

// Config holds the connection settings for an S3-compatible bucket.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for R2/MinIO
	AccessKey string
	SecretKey string
	PathStyle bool
}

// S3Store is a ResumeStore backed by an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// maxNameLength bounds the file-name part of a resume key.
const maxNameLength = 100

// ResumeKey builds the object key for a user's uploaded resume:
// resumes/<user>/<unix-millis>-<sanitized name>.
func ResumeKey(userID uuid.UUID, filename string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "resume"
	}
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	return fmt.Sprintf("resumes/%s/%d-%s", userID, now.UnixMilli(), name)
}

// NewS3Store creates a store for cfg.Bucket. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// PutResume uploads data under key.
func (s *S3Store) PutResume(ctx context.Context, key, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("storage: failed to put %s: %w", key, err)
	}
	return nil
}
