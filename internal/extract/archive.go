package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"roast-backend/internal/shared/storage/object"
)

// Archived records where an upload and its text copy were stored.
type Archived struct {
	UploadKey    string
	ExtractedKey string
	MimeType     string
	SizeBytes    int64
}

// Archive saves the original upload and a derived .extracted.txt copy.
func Archive(ctx context.Context, store object.ObjectStore, principal, fileName string, data []byte, text string) (Archived, error) {
	if store == nil {
		return Archived{}, nil
	}
	key, size, mimeType, err := store.Save(ctx, principal, fileName, bytes.NewReader(data))
	if err != nil {
		return Archived{}, fmt.Errorf("archive upload %s: %w", fileName, err)
	}
	textKey := object.ExtractedKey(key)
	if _, err := store.SaveWithKey(ctx, textKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return Archived{}, fmt.Errorf("archive extracted text key=%s: %w", textKey, err)
	}
	return Archived{
		UploadKey:    key,
		ExtractedKey: textKey,
		MimeType:     mimeType,
		SizeBytes:    size,
	}, nil
}
