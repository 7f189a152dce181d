package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	fbstorage "firebase.google.com/go/v4/storage"
)

// ErrObjectNotFound is returned when a bucket object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Bucket is the subset of object storage the thumbnail pipeline uses.
type Bucket interface {
	Download(ctx context.Context, name string) ([]byte, error)
	Upload(ctx context.Context, name, contentType string, data []byte) error
	// SignedURL returns a read-only URL for name valid until expires.
	SignedURL(name string, expires time.Time) (string, error)
}

// Buckets opens a bucket by name. An empty name selects the default bucket.
type Buckets interface {
	Open(ctx context.Context, name string) (Bucket, error)
}

// FirebaseBuckets opens buckets through the Firebase Storage client.
type FirebaseBuckets struct {
	client *fbstorage.Client
}

// NewFirebaseBuckets creates a new FirebaseBuckets
func NewFirebaseBuckets(client *fbstorage.Client) *FirebaseBuckets {
	return &FirebaseBuckets{client: client}
}

func (b *FirebaseBuckets) Open(_ context.Context, name string) (Bucket, error) {
	var (
		handle *gcs.BucketHandle
		err    error
	)
	if name == "" {
		handle, err = b.client.DefaultBucket()
	} else {
		handle, err = b.client.Bucket(name)
	}
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", name, err)
	}
	return &gcsBucket{handle: handle}, nil
}

type gcsBucket struct {
	handle *gcs.BucketHandle
}

func (b *gcsBucket) Download(ctx context.Context, name string) ([]byte, error) {
	r, err := b.handle.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *gcsBucket) Upload(ctx context.Context, name, contentType string, data []byte) error {
	w := b.handle.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", name, err)
	}
	return nil
}

func (b *gcsBucket) SignedURL(name string, expires time.Time) (string, error) {
	// V4 signatures expire within seven days.
	return b.handle.SignedURL(name, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: expires,
		Scheme:  gcs.SigningSchemeV2,
	})
}

// MemoryBucket keeps objects in memory. Used by tests and local runs.
type MemoryBucket struct {
	mu      sync.Mutex
	Name    string
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemoryBucket creates an empty MemoryBucket
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{Name: name, objects: make(map[string]memoryObject)}
}

// Open returns the bucket itself regardless of name
func (b *MemoryBucket) Open(context.Context, string) (Bucket, error) {
	return b, nil
}

func (b *MemoryBucket) Download(_ context.Context, name string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrObjectNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

func (b *MemoryBucket) Upload(_ context.Context, name, contentType string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = memoryObject{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

func (b *MemoryBucket) SignedURL(name string, expires time.Time) (string, error) {
	return fmt.Sprintf("memory://%s/%s?expires=%d", b.Name, name, expires.Unix()), nil
}

// ContentType returns the stored content type of name
func (b *MemoryBucket) ContentType(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[name]
	return obj.contentType, ok
}
