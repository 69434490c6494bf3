package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"roast-backend/internal/shared/storage/object"
)

// objectWriter is the part of *storage.Writer the store uses.
type objectWriter interface {
	io.Writer
	Close() error
}

// writerFactory opens a conditional writer for one object.
type writerFactory interface {
	NewWriter(ctx context.Context, key, contentType string, cond storage.Conditions) objectWriter
}

type bucketWriters struct {
	handle *storage.BucketHandle
}

func (b bucketWriters) NewWriter(ctx context.Context, key, contentType string, cond storage.Conditions) objectWriter {
	w := b.handle.Object(key).If(cond).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

// Store archives objects in a Google Cloud Storage bucket.
type Store struct {
	client *storage.Client
	bucket writerFactory
	name   string
	prefix string
	now    func() time.Time
}

// New opens a GCS client with application default credentials.
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	st := newWithWriters(bucketWriters{handle: client.Bucket(bucket)}, bucket, prefix)
	st.client = client
	return st, nil
}

func newWithWriters(writers writerFactory, bucket, prefix string) *Store {
	return &Store{
		bucket: writers,
		name:   bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		now:    time.Now,
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Save uploads r under a generated upload key.
func (s *Store) Save(ctx context.Context, principal string, fileName string, r io.Reader) (string, int64, string, error) {
	key, err := object.UploadKey(principal, fileName, s.now())
	if err != nil {
		return "", 0, "", err
	}

	var sniff [object.SniffSize]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return "", 0, "", fmt.Errorf("read sniff: %w", readErr)
	}
	mimeType := object.DetectContentType(sniff[:n])

	size, err := s.SaveWithKey(ctx, key, mimeType, io.MultiReader(bytes.NewReader(sniff[:n]), r))
	if err != nil {
		return "", 0, "", err
	}
	return key, size, mimeType, nil
}

// SaveWithKey writes r at storageKey. Existing objects are left untouched so
// retried uploads stay idempotent. A failed copy cancels the writer so no
// partial object is committed.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	objectKey := object.ApplyPrefix(s.prefix, storageKey)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := s.bucket.NewWriter(wctx, objectKey, contentType, storage.Conditions{DoesNotExist: true})

	written, err := io.Copy(w, r)
	if err != nil {
		cancel()
		_ = w.Close()
		return 0, fmt.Errorf("gcs write bucket=%s key=%s: %w", s.name, objectKey, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return written, nil
		}
		return 0, fmt.Errorf("gcs finalize bucket=%s key=%s: %w", s.name, objectKey, err)
	}
	return written, nil
}

var _ object.ObjectStore = (*Store)(nil)
