// Package storage persists uploaded page files under purpose-namespaced buckets
// and maps the resulting public URLs back to their bucket and key.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Bucket names a storage namespace.
type Bucket string

// Buckets used by legacy pages.
const (
	BucketCoverPhotos    Bucket = "cover-photos"
	BucketHonoureePhotos Bucket = "honouree-photos"
	BucketMedia          Bucket = "media"
)

var (
	// ErrUnknownBucket is returned for bucket names outside the fixed set.
	ErrUnknownBucket = eris.New("unknown storage bucket")
	// ErrInvalidKey is returned for empty keys and keys that leave their bucket.
	ErrInvalidKey = eris.New("invalid storage key")
)

// Storage stores and removes files and resolves their public URLs.
type Storage interface {
	Store(ctx context.Context, bucket Bucket, key string, body io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, bucket Bucket, key string) error
	Locate(fileURL string) (Bucket, string, bool)
}

// Valid reports whether the bucket is one of the known namespaces.
func (b Bucket) Valid() bool {
	switch b {
	case BucketCoverPhotos, BucketHonoureePhotos, BucketMedia:
		return true
	default:
		return false
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds a collision-resistant key prefixed with the upload time in milliseconds.
func ObjectKey(now time.Time, filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	base = strings.Trim(unsafeKeyChars.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "upload"
	}

	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], base)
}

// publicURL joins base, bucket and key into the URL handed back to callers.
func publicURL(base string, bucket Bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + string(bucket) + "/" + key
}

// locateUnder splits a URL produced by publicURL back into bucket and key.
func locateUnder(base, fileURL string) (Bucket, string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return "", "", false
	}

	rest := strings.TrimPrefix(fileURL, prefix)
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}

	bucket, key, found := strings.Cut(rest, "/")
	if !found || key == "" || !Bucket(bucket).Valid() {
		return "", "", false
	}

	return Bucket(bucket), key, true
}

func validateTarget(bucket Bucket, key string) error {
	if !bucket.Valid() {
		return eris.Wrapf(ErrUnknownBucket, "bucket %q", bucket)
	}
	if strings.TrimSpace(key) == "" {
		return eris.Wrap(ErrInvalidKey, "storage key is required")
	}
	return nil
}
