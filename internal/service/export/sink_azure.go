package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/tokern/dbcat/internal/domain"
)

// azureServiceURL is the blob endpoint of an account.
var azureServiceURL = func(account string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net", account)
}

type azureSink struct {
	ctx       context.Context
	client    *azblob.Client
	container string
	key       string
	buf       bytes.Buffer
}

func newAzureSink(ctx context.Context, dest string, cfg SinkConfig) (*azureSink, error) {
	account, container, key, err := parseAzurePath(dest, cfg.AzureAccount)
	if err != nil {
		return nil, domain.ErrValidation("%v", err)
	}
	if account == "" || cfg.AzureAccountKey == "" {
		return nil, domain.ErrConfiguration("export to %s requires an Azure account name and key", dest)
	}
	cred, err := azblob.NewSharedKeyCredential(account, cfg.AzureAccountKey)
	if err != nil {
		return nil, domain.ErrConfiguration("azure shared key: %v", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(azureServiceURL(account), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &azureSink{ctx: ctx, client: client, container: container, key: key}, nil
}

func (s *azureSink) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *azureSink) Abort() error {
	s.buf.Reset()
	return nil
}

func (s *azureSink) Close() error {
	_, err := s.client.UploadBuffer(s.ctx, s.container, s.key, s.buf.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.container, s.key, err)
	}
	return nil
}

// parseAzurePath extracts account, container and key from an Azure storage
// URI. az:// paths carry no account and use defaultAccount.
func parseAzurePath(path, defaultAccount string) (account, container, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", "", fmt.Errorf("parse Azure path %q: %w", path, err)
	}

	switch u.Scheme {
	case "abfss":
		// abfss://container@account.dfs.core.windows.net/path/to/file
		if u.User == nil {
			return "", "", "", fmt.Errorf("abfss path %q missing container@account component", path)
		}
		account, _, _ = strings.Cut(u.Host, ".")
		container = u.User.Username()
		key = strings.TrimPrefix(u.Path, "/")

	case "az":
		account = defaultAccount
		container = u.Host
		key = strings.TrimPrefix(u.Path, "/")

	case "https":
		if !strings.HasSuffix(u.Host, ".blob.core.windows.net") {
			return "", "", "", fmt.Errorf("unrecognized Azure HTTPS host %q in path %q", u.Host, path)
		}
		account, _, _ = strings.Cut(u.Host, ".")
		container, key, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")

	default:
		return "", "", "", fmt.Errorf("unrecognized Azure path scheme %q in %q", u.Scheme, path)
	}

	if container == "" {
		return "", "", "", fmt.Errorf("empty container in Azure path %q", path)
	}
	if key == "" {
		return "", "", "", fmt.Errorf("empty key in Azure path %q", path)
	}
	return account, container, key, nil
}
