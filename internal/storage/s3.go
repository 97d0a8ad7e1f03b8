// Package storage uploads profile images to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Uploader stores file streams and returns stable URLs. Profile image
// uploads must complete before the user record is persisted, so Upload is
// synchronous and honors the request context.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, folder, filename, contentType string) (string, error)
}

// S3Uploader implements Uploader against AWS S3 or any S3-compatible
// endpoint (MinIO and friends).
type S3Uploader struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Uploader builds the client from static credentials. endpoint may be
// empty for AWS proper.
func NewS3Uploader(ctx context.Context, region, bucket, endpoint, key, secret string) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, bucket: bucket, endpoint: endpoint}, nil
}

// Upload streams the file under a date-partitioned random key and returns
// the object URL.
func (u *S3Uploader) Upload(ctx context.Context, r io.Reader, folder, filename, contentType string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	d := time.Now().UTC()
	key := fmt.Sprintf("%s/%d/%02d/%s%s", folder, d.Year(), d.Month(), uuid.NewString(), ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.endpoint, "/"), u.bucket, key), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key), nil
}
