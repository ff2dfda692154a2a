// Package blob issues time-limited download URLs for indexed documents held
// in object storage.
package blob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Signer generates signed GET URLs for objects in a single bucket.
type Signer struct {
	client *storage.Client
	bucket string
	urlTTL time.Duration
}

func NewSigner(ctx context.Context, bucket, credentialsFile string, urlTTL time.Duration) (*Signer, error) {
	if bucket == "" {
		return nil, fmt.Errorf("blob bucket name is empty")
	}
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client failed: %w", err)
	}

	return &Signer{client: client, bucket: bucket, urlTTL: urlTTL}, nil
}

// SignedDownloadURL returns a time-limited URL for objectName. The index
// stores object names URL-encoded; they are decoded before signing.
func (s *Signer) SignedDownloadURL(objectName string) (string, error) {
	if objectName == "" {
		return "", fmt.Errorf("blob object name is empty")
	}
	if decoded, err := url.QueryUnescape(objectName); err == nil {
		objectName = decoded
	}

	signed, err := s.client.Bucket(s.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(s.urlTTL),
	})
	if err != nil {
		return "", fmt.Errorf("sign download url for %q failed: %w", objectName, err)
	}
	return signed, nil
}

func (s *Signer) Close() error {
	return s.client.Close()
}
