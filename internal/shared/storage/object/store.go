package object

import (
	"context"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// ObjectStore archives uploaded resumes and their extracted text.
type ObjectStore interface {
	// Save writes r under a namespace derived from principal and returns the generated key.
	Save(ctx context.Context, principal string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey writes r at an exact key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
}

// SniffSize is how many leading bytes stores read to detect content type.
const SniffSize = 3072

// DetectContentType sniffs head with the same detector for every backend.
func DetectContentType(head []byte) string {
	return mimetype.Detect(head).String()
}
