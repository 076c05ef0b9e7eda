package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

const (
	gcsPublicHost = "https://storage.googleapis.com"
	gcsOpTimeout  = 2 * time.Minute
)

// GCSOptions configures the Google Cloud Storage backend.
type GCSOptions struct {
	// BucketPrefix is prepended to each logical bucket name to form the GCS bucket.
	BucketPrefix string
	// EmulatorHost points the client at a fake-gcs style emulator.
	EmulatorHost string
}

// GCS stores files in Google Cloud Storage buckets.
type GCS struct {
	client  *storage.Client
	prefix  string
	baseURL string
}

var _ Storage = (*GCS)(nil)

// NewGCS creates a storage client using application default credentials, or the
// emulator without authentication when EmulatorHost is set.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	var clientOpts []option.ClientOption
	baseURL := gcsPublicHost

	if host := strings.TrimRight(strings.TrimSpace(opts.EmulatorHost), "/"); host != "" {
		if err := os.Setenv("STORAGE_EMULATOR_HOST", host); err != nil {
			return nil, eris.Wrap(err, "configuring storage emulator host")
		}
		clientOpts = append(clientOpts, option.WithoutAuthentication())
		baseURL = host
	} else {
		clientOpts = append(clientOpts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "creating storage client")
	}

	return &GCS{client: client, prefix: strings.TrimSpace(opts.BucketPrefix), baseURL: baseURL}, nil
}

func (g *GCS) bucketName(bucket Bucket) string {
	return g.prefix + string(bucket)
}

// Store uploads the body and returns its public URL.
func (g *GCS) Store(ctx context.Context, bucket Bucket, key string, body io.Reader, contentType string) (string, error) {
	if err := validateTarget(bucket, key); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, gcsOpTimeout)
	defer cancel()

	w := g.client.Bucket(g.bucketName(bucket)).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", eris.Wrapf(err, "writing %s/%s to gcs", bucket, key)
	}
	if err := w.Close(); err != nil {
		return "", eris.Wrapf(err, "closing gcs writer for %s/%s", bucket, key)
	}

	return g.url(bucket, key), nil
}

// Remove deletes the object. Missing objects are not an error.
func (g *GCS) Remove(ctx context.Context, bucket Bucket, key string) error {
	if err := validateTarget(bucket, key); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, gcsOpTimeout)
	defer cancel()

	err := g.client.Bucket(g.bucketName(bucket)).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return eris.Wrapf(err, "deleting %s/%s from gcs", bucket, key)
	}

	return nil
}

// Locate maps a URL returned by Store back to bucket and key.
func (g *GCS) Locate(fileURL string) (Bucket, string, bool) {
	prefix := strings.TrimRight(g.baseURL, "/") + "/" + g.prefix
	if !strings.HasPrefix(fileURL, prefix) {
		return "", "", false
	}
	return locateUnder(g.baseURL, g.baseURL+"/"+strings.TrimPrefix(fileURL, prefix))
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	if err := g.client.Close(); err != nil {
		return eris.Wrap(err, "closing storage client")
	}
	return nil
}

func (g *GCS) url(bucket Bucket, key string) string {
	return strings.TrimRight(g.baseURL, "/") + "/" + g.bucketName(bucket) + "/" + key
}
