package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Recorder counts upload outcomes.
type Recorder interface {
	ObserveBlobUpload(outcome string)
}

// Options configures the store. BucketURL is any gocloud URL
// (s3://, gs://, file://, mem://); PublicBaseURL is the prefix under which
// stored objects are publicly readable.
type Options struct {
	BucketURL     string
	PublicBaseURL string
	Recorder      Recorder
}

// Store writes public assets into a bucket and returns their public URLs.
type Store struct {
	bucket   *blob.Bucket
	baseURL  string
	recorder Recorder
}

// Open connects to the bucket named by opts.BucketURL.
func Open(ctx context.Context, opts Options) (*Store, error) {
	bucketURL := strings.TrimSpace(opts.BucketURL)
	if bucketURL == "" {
		return nil, errors.New("storage: bucket url is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: public base url is required")
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("storage: open bucket: %w", err)
	}
	return &Store{bucket: bucket, baseURL: baseURL, recorder: opts.Recorder}, nil
}

// NewStore wraps an already opened bucket.
func NewStore(bucket *blob.Bucket, publicBaseURL string) *Store {
	return &Store{bucket: bucket, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Put uploads data under key and returns its public URL. Keys are cleaned to
// prevent escaping the bucket prefix.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		s.observe("invalid")
		return "", err
	}
	opts := &blob.WriterOptions{ContentType: contentType, CacheControl: "public, max-age=31536000"}
	if err := s.bucket.WriteAll(ctx, cleanKey, data, opts); err != nil {
		s.observe("error")
		return "", fmt.Errorf("storage: write %s: %w", cleanKey, err)
	}
	s.observe("success")
	return s.PublicURL(cleanKey), nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	return s.bucket.Exists(ctx, cleanKey)
}

// PublicURL joins a stored key onto the public base.
func (s *Store) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

// Close releases the bucket.
func (s *Store) Close() error {
	if s == nil || s.bucket == nil {
		return nil
	}
	return s.bucket.Close()
}

func (s *Store) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveBlobUpload(outcome)
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
