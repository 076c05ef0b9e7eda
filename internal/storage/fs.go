package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// FS stores files on the local file system below a root directory.
type FS struct {
	root    string
	baseURL string
}

var _ Storage = (*FS)(nil)

// NewFS creates the root directory if needed. baseURL is the public prefix under
// which the HTTP server exposes the files.
func NewFS(root, baseURL string) (*FS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, eris.New("storage root is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, eris.Wrap(err, "resolving storage root")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, eris.Wrap(err, "creating storage root")
	}

	return &FS{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// safePath resolves bucket and key below the root and rejects any traversal outside it.
func (f *FS) safePath(bucket Bucket, key string) (string, error) {
	if err := validateTarget(bucket, key); err != nil {
		return "", err
	}

	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) {
		return "", eris.Wrapf(ErrInvalidKey, "absolute key %q", key)
	}

	bucketRoot := filepath.Join(f.root, string(bucket))
	abs := filepath.Join(bucketRoot, cleaned)
	if !strings.HasPrefix(abs, bucketRoot+string(os.PathSeparator)) {
		return "", eris.Wrapf(ErrInvalidKey, "key %q escapes bucket", key)
	}

	return abs, nil
}

// Store writes the body atomically: temp file, fsync, rename.
func (f *FS) Store(ctx context.Context, bucket Bucket, key string, body io.Reader, _ string) (string, error) {
	abs, err := f.safePath(bucket, key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "storing file")
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "creating bucket directory")
	}

	tmp, err := os.CreateTemp(dir, ".upload-tmp-*")
	if err != nil {
		return "", eris.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return "", eris.Wrap(err, "writing temp file")
	}
	if err := tmp.Sync(); err != nil {
		return "", eris.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", eris.Wrap(err, "renaming temp file")
	}
	success = true

	return publicURL(f.baseURL, bucket, filepath.ToSlash(filepath.Clean(filepath.FromSlash(key)))), nil
}

// Remove deletes the stored file. Missing files are not an error.
func (f *FS) Remove(_ context.Context, bucket Bucket, key string) error {
	abs, err := f.safePath(bucket, key)
	if err != nil {
		return err
	}

	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "removing %s/%s", bucket, key)
	}

	return nil
}

// Locate maps a URL returned by Store back to bucket and key.
func (f *FS) Locate(fileURL string) (Bucket, string, bool) {
	return locateUnder(f.baseURL, fileURL)
}

// Open returns the stored file for serving.
func (f *FS) Open(bucket Bucket, key string) (*os.File, error) {
	abs, err := f.safePath(bucket, key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, eris.Wrap(err, "stat stored file")
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}

	return file, nil
}
