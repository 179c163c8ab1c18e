package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tokern/dbcat/internal/domain"
)

type s3Sink struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
}

func newS3Sink(ctx context.Context, dest string, cfg SinkConfig) (*s3Sink, error) {
	bucket, key, err := parseS3Path(dest)
	if err != nil {
		return nil, domain.ErrValidation("%v", err)
	}
	if cfg.S3KeyID == "" || cfg.S3Secret == "" {
		return nil, domain.ErrConfiguration("export to %s requires an S3 key id and secret", dest)
	}
	return &s3Sink{ctx: ctx, client: newS3Client(cfg), bucket: bucket, key: key}, nil
}

func newS3Client(cfg SinkConfig) *s3.Client {
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3KeyID, cfg.S3Secret, ""),
		UsePathStyle: cfg.S3PathStyle,
		// S3-compatible stores reject the SDK's default trailing checksums.
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.S3Endpoint != "" {
		endpoint := cfg.S3Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return s3.New(opts)
}

func (s *s3Sink) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *s3Sink) Abort() error {
	s.buf.Reset()
	return nil
}

func (s *s3Sink) Close() error {
	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(s.buf.Bytes()),
		ContentLength: aws.Int64(int64(s.buf.Len())),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

const contentType = "application/x-ndjson"

// parseS3Path extracts bucket and key from an "s3://bucket/path/to/file" URI.
func parseS3Path(s3Path string) (bucket, key string, err error) {
	u, err := url.Parse(s3Path)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 path %q: %w", s3Path, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("expected s3:// scheme, got %q in %q", u.Scheme, s3Path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket in S3 path %q", s3Path)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty key in S3 path %q", s3Path)
	}
	return bucket, key, nil
}
