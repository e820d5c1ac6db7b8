package settlement

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader stores a rendered report.
type Uploader interface {
	Upload(ctx context.Context, name string, body []byte) (string, error)
}

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Uploader(client ObjectPutter, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3UploaderForRegion builds an uploader from the default AWS credential chain.
func NewS3UploaderForRegion(ctx context.Context, region, bucket, prefix string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3Uploader(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (u *S3Uploader) Upload(ctx context.Context, name string, body []byte) (string, error) {
	key := name
	if u.prefix != "" {
		key = u.prefix + "/" + name
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload %s to S3: %w", key, err)
	}
	return "s3://" + u.bucket + "/" + key, nil
}

// LocalUploader writes reports under a directory.
type LocalUploader struct {
	Dir string
}

func (u LocalUploader) Upload(_ context.Context, name string, body []byte) (string, error) {
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(u.Dir, filepath.Base(name))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ParseDestination splits "s3://bucket/prefix" into bucket and prefix. Anything else
// is treated as a local directory.
func ParseDestination(dest string) (bucket, prefix string, isS3 bool) {
	rest, ok := strings.CutPrefix(dest, "s3://")
	if !ok {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, prefix, true
}

// FileName is the conventional object name of a report.
func FileName(r *Report, f Format) string {
	if f == "" {
		f = FormatCSV
	}
	return fmt.Sprintf("settlement_%s_%s.%s", r.From.Format("20060102"), r.To.Format("20060102"), f)
}

func contentType(name string) string {
	if strings.HasSuffix(name, ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}
