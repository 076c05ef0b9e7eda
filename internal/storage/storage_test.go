package storage

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

func TestObjectKeyIsTimestampPrefixedAndSanitised(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000123)
	key := ObjectKey(now, `C:\photos\../Grandma at the lake!.JPG`)

	pattern := regexp.MustCompile(`^1700000000123-[0-9a-f]{8}-Grandma-at-the-lake-.JPG$`)
	if !pattern.MatchString(key) {
		t.Fatalf("unexpected key %q", key)
	}

	if fallback := ObjectKey(now, "../"); !strings.HasSuffix(fallback, "-upload") {
		t.Fatalf("expected fallback name for empty filename, got %q", fallback)
	}

	if ObjectKey(now, "a.png") == ObjectKey(now, "a.png") {
		t.Fatalf("expected distinct keys for uploads within the same millisecond")
	}
}

func TestFSStoreLocateOpenRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs, err := NewFS(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatalf("NewFS returned error: %v", err)
	}

	url, err := fs.Store(ctx, BucketCoverPhotos, "123-cover.png", strings.NewReader("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if url != "/uploads/cover-photos/123-cover.png" {
		t.Fatalf("unexpected url %q", url)
	}

	bucket, key, ok := fs.Locate(url)
	if !ok || bucket != BucketCoverPhotos || key != "123-cover.png" {
		t.Fatalf("Locate(%q) = %q, %q, %v", url, bucket, key, ok)
	}

	file, err := fs.Open(bucket, key)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	content, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(content) != "png-bytes" {
		t.Fatalf("unexpected stored content %q", content)
	}

	if err := fs.Remove(ctx, bucket, key); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := fs.Open(bucket, key); !os.IsNotExist(err) {
		t.Fatalf("expected removed file to be missing, got %v", err)
	}

	if err := fs.Remove(ctx, bucket, key); err != nil {
		t.Fatalf("expected removing a missing file to succeed, got %v", err)
	}
}

func TestFSRejectsTraversalAndUnknownBuckets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs, err := NewFS(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewFS returned error: %v", err)
	}

	if _, err := fs.Store(ctx, BucketMedia, "../../escape.txt", strings.NewReader("x"), ""); !eris.Is(err, ErrInvalidKey) {
		t.Fatalf("expected traversal to be rejected as an invalid key, got %v", err)
	}

	if _, err := fs.Store(ctx, Bucket("secrets"), "a.txt", strings.NewReader("x"), ""); err == nil {
		t.Fatalf("expected unknown bucket to be rejected")
	}

	if _, err := fs.Open(BucketMedia, ""); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}

func TestLocateRejectsForeignURLs(t *testing.T) {
	t.Parallel()

	fs, err := NewFS(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewFS returned error: %v", err)
	}

	for _, candidate := range []string{
		"https://example.com/uploads/media/a.png",
		"/uploads/unknown/a.png",
		"/uploads/media/",
		"/uploadsmedia/a.png",
	} {
		if _, _, ok := fs.Locate(candidate); ok {
			t.Errorf("expected %q not to be located", candidate)
		}
	}
}

func TestGCSLocateHonoursBucketPrefix(t *testing.T) {
	t.Parallel()

	g := &GCS{prefix: "legacy-prod-", baseURL: gcsPublicHost}

	url := g.url(BucketMedia, "1-a.mp4")
	if url != "https://storage.googleapis.com/legacy-prod-media/1-a.mp4" {
		t.Fatalf("unexpected url %q", url)
	}

	bucket, key, ok := g.Locate(url)
	if !ok || bucket != BucketMedia || key != "1-a.mp4" {
		t.Fatalf("Locate(%q) = %q, %q, %v", url, bucket, key, ok)
	}

	if _, _, ok := g.Locate("https://storage.googleapis.com/other-media/1-a.mp4"); ok {
		t.Fatalf("expected url from a different prefix not to be located")
	}
}
