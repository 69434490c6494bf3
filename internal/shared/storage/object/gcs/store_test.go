package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// fakeBucket commits an object on Close unless the writer's context was
// cancelled, and enforces DoesNotExist like the real service.
type fakeBucket struct {
	objects      map[string][]byte
	contentTypes map[string]string
	conds        []storage.Conditions
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeBucket) NewWriter(ctx context.Context, key, contentType string, cond storage.Conditions) objectWriter {
	f.conds = append(f.conds, cond)
	return &fakeWriter{ctx: ctx, bucket: f, key: key, contentType: contentType, cond: cond}
}

type fakeWriter struct {
	ctx         context.Context
	bucket      *fakeBucket
	key         string
	contentType string
	cond        storage.Conditions
	buf         bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if _, exists := w.bucket.objects[w.key]; exists && w.cond.DoesNotExist {
		return &googleapi.Error{Code: http.StatusPreconditionFailed, Message: "conditionNotMet"}
	}
	w.bucket.objects[w.key] = w.buf.Bytes()
	w.bucket.contentTypes[w.key] = w.contentType
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), " ", ""); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}

func TestSaveUsesUploadKeyLayout(t *testing.T) {
	bucket := newFakeBucket()
	store := newWithWriters(bucket, "roasts", "/archive/")
	store.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }

	key, size, mimeType, err := store.Save(context.Background(), "service", "resume.txt", strings.NewReader("Synergy ninja."))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(key, "uploads/2026/03/04/") || !strings.HasSuffix(key, "_resume.txt") {
		t.Fatalf("unexpected key layout %q", key)
	}
	if size != int64(len("Synergy ninja.")) || !strings.HasPrefix(mimeType, "text/plain") {
		t.Fatalf("unexpected size %d or mime %q", size, mimeType)
	}
	stored, ok := bucket.objects["archive/"+key]
	if !ok {
		t.Fatalf("expected prefixed object, have %v", bucket.objects)
	}
	if string(stored) != "Synergy ninja." {
		t.Fatalf("unexpected body %q", stored)
	}
	if len(bucket.conds) != 1 || !bucket.conds[0].DoesNotExist {
		t.Fatalf("expected DoesNotExist precondition, got %+v", bucket.conds)
	}
}

func TestSaveWithKeyExistingObjectIsIdempotent(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["uploads/a.txt.extracted.txt"] = []byte("first")
	store := newWithWriters(bucket, "roasts", "")

	n, err := store.SaveWithKey(context.Background(), "uploads/a.txt.extracted.txt", "text/plain", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("expected precondition failure to be treated as success, got %v", err)
	}
	if n != int64(len("second")) {
		t.Fatalf("unexpected written count %d", n)
	}
	if got := string(bucket.objects["uploads/a.txt.extracted.txt"]); got != "first" {
		t.Fatalf("existing object was overwritten: %q", got)
	}
}

func TestSaveWithKeyFinalizeErrorIsReturned(t *testing.T) {
	store := newWithWriters(errBucket{err: &googleapi.Error{Code: http.StatusForbidden}}, "roasts", "")
	if _, err := store.SaveWithKey(context.Background(), "k", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected finalize error")
	}
}

func TestSaveWithKeyCopyFailureCommitsNothing(t *testing.T) {
	bucket := newFakeBucket()
	store := newWithWriters(bucket, "roasts", "")

	_, err := store.SaveWithKey(context.Background(), "uploads/partial.pdf", "application/pdf",
		io.MultiReader(strings.NewReader("half a pdf"), failingReader{}))
	if err == nil {
		t.Fatalf("expected copy error")
	}
	if _, ok := bucket.objects["uploads/partial.pdf"]; ok {
		t.Fatalf("partial object was committed")
	}
}

type errBucket struct{ err error }

func (b errBucket) NewWriter(ctx context.Context, key, contentType string, cond storage.Conditions) objectWriter {
	return errWriter{err: b.err}
}

type errWriter struct{ err error }

func (errWriter) Write(p []byte) (int, error) { return len(p), nil }
func (w errWriter) Close() error              { return w.err }
