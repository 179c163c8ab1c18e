package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SinkConfig holds the object store credentials used by remote sinks.
type SinkConfig struct {
	S3Region        string `mapstructure:"s3_region"`
	S3Endpoint      string `mapstructure:"s3_endpoint"`
	S3KeyID         string `mapstructure:"s3_key_id"`
	S3Secret        string `mapstructure:"s3_secret"`
	S3PathStyle     bool   `mapstructure:"s3_path_style"`
	GCSKeyFile      string `mapstructure:"gcs_key_file"`
	AzureAccount    string `mapstructure:"azure_account"`
	AzureAccountKey string `mapstructure:"azure_account_key"`
}

// OpenSink returns a writer for dest. Remote objects are uploaded on Close;
// pass the writer to Abort instead to discard a partial export.
//
//	-                                    stdout
//	s3://bucket/key                      Amazon S3 or an S3-compatible store
//	gs://bucket/key                      Google Cloud Storage
//	az://container/key                   Azure Blob Storage, account from cfg
//	abfss://container@account.dfs.core.windows.net/key
//	https://account.blob.core.windows.net/container/key
//	anything else                        a local file, parents created
func OpenSink(ctx context.Context, dest string, cfg SinkConfig, stdout io.Writer) (io.WriteCloser, error) {
	scheme, _, _ := strings.Cut(dest, "://")
	switch {
	case dest == "-":
		return nopCloser{stdout}, nil
	case !strings.Contains(dest, "://"):
		return openFile(dest)
	case scheme == "s3":
		return newS3Sink(ctx, dest, cfg)
	case scheme == "gs":
		return newGCSSink(ctx, dest, cfg)
	case scheme == "az" || scheme == "abfss" || scheme == "https":
		return newAzureSink(ctx, dest, cfg)
	default:
		return nil, fmt.Errorf("unsupported export destination %q", dest)
	}
}

type aborter interface {
	Abort() error
}

// Abort discards whatever was written to a sink from OpenSink without
// publishing it. Sinks that cannot discard, like stdout, are closed.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(aborter); ok {
		return a.Abort()
	}
	return w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// fileSink removes its file on Abort.
type fileSink struct {
	*os.File
}

func (f fileSink) Abort() error {
	return errors.Join(f.File.Close(), os.Remove(f.Name()))
}

func openFile(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	return fileSink{f}, nil
}
