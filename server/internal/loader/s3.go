package loader

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// objectGetter is the subset of *s3.Client used by S3Source.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds the bucket location and credentials of an S3Source.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // for S3-compatible stores; enables path-style addressing
	AccessKey string
	SecretKey string
}

// S3Source reads tables from objects under a bucket prefix.
type S3Source struct {
	client objectGetter
	bucket string
	prefix string
}

// NewS3Source builds an S3 client from cfg. Without an access key requests
// are sent unsigned.
func NewS3Source(cfg S3Config) *S3Source {
	opts := s3.Options{Region: cfg.Region}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.AccessKey != "" {
		opts.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		)
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return &S3Source{client: s3.New(opts), bucket: cfg.Bucket, prefix: cfg.Prefix}
}

func (s *S3Source) String() string { return "s3://" + path.Join(s.bucket, s.prefix) }

// Fetch reads <prefix>/<name>.csv.zst, falling back to <prefix>/<name>.csv.
func (s *S3Source) Fetch(ctx context.Context, name string) (*table.Frame, error) {
	for _, suffix := range []string{suffixZstd, suffixPlain} {
		key := path.Join(s.prefix, name+suffix)
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
		}
		frame, err := decodeObject(out.Body, suffix == suffixZstd)
		out.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
		}
		return frame, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s)
}
