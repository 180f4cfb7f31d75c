// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

type (
	// S3Options configures the S3 client. Empty fields fall back to the AWS
	// default configuration chain.
	S3Options struct {
		Region          string
		Endpoint        string
		AccessKeyID     string
		SecretAccessKey string
		PathStyle       bool
	}

	// s3API is the subset of the S3 client used for uploads.
	s3API interface {
		PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	// S3Uploader stores artifacts in a bucket named after the repository,
	// under a key prefix per distribution.
	S3Uploader struct {
		client s3API
	}
)

// NewS3Uploader builds an S3 client from opts.
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return &S3Uploader{client: client}, nil
}

// ObjectKey is the key an artifact is stored under for distro.
func ObjectKey(distro, name string) string {
	return path.Join(distro, name)
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, up Upload) error {
	f, err := os.Open(up.Artifact.Path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	contentType, err := sniffContentType(f)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(up.Repo),
		Key:           aws.String(ObjectKey(up.Distro, up.Artifact.Name)),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	}
	if md := up.Metadata; md != nil {
		input.Metadata = map[string]string{
			"name":      md.Name,
			"version":   md.Version,
			"iteration": md.Iteration,
			"arch":      md.Arch,
			"format":    md.Format,
			"sha256":    md.SHA256,
		}
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3: put %s/%s: %w", up.Repo, *input.Key, err)
	}
	return nil
}

// sniffContentType detects the MIME type from the first bytes of f and
// rewinds it.
func sniffContentType(f io.ReadSeeker) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind artifact: %w", err)
	}
	return mimetype.Detect(buf[:n]).String(), nil
}
