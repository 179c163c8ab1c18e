package export

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/tokern/dbcat/internal/domain"
)

type gcsSink struct {
	client *storage.Client
	w      *storage.Writer
	cancel context.CancelFunc
}

// newGCSSink streams to the object. Without a key file the client uses
// application default credentials.
func newGCSSink(ctx context.Context, dest string, cfg SinkConfig, extra ...option.ClientOption) (*gcsSink, error) {
	bucket, key, err := parseGCSPath(dest)
	if err != nil {
		return nil, domain.ErrValidation("%v", err)
	}
	opts := extra
	if cfg.GCSKeyFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.GCSKeyFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	// Cancelling the writer's context abandons the upload.
	wctx, cancel := context.WithCancel(ctx)
	w := client.Bucket(bucket).Object(key).NewWriter(wctx)
	w.ContentType = contentType
	return &gcsSink{client: client, w: w, cancel: cancel}, nil
}

func (s *gcsSink) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *gcsSink) Close() error {
	defer s.cancel()
	return errors.Join(s.w.Close(), s.client.Close())
}

func (s *gcsSink) Abort() error {
	s.cancel()
	// The writer reports the cancellation; the object is not created.
	_ = s.w.Close()
	return s.client.Close()
}

// parseGCSPath extracts bucket and key from a "gs://bucket/path/to/file" URI.
func parseGCSPath(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse GCS path %q: %w", path, err)
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("expected gs:// scheme, got %q in %q", u.Scheme, path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("empty key in GCS path %q", path)
	}
	return bucket, key, nil
}
