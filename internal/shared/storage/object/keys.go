package object

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"roast-backend/internal/shared/util"
)

// UploadKey builds "uploads/<yyyy>/<mm>/<dd>/<principal-hash>/<uuid>_<name>".
func UploadKey(principal, fileName string, now time.Time) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	owner := util.PrincipalDigest(principal, 16)
	day := now.UTC().Format("2006/01/02")
	return path.Join("uploads", day, owner, uuid.NewString()+"_"+name), nil
}

// ExtractedKey is where the plain-text copy of an upload lives.
func ExtractedKey(uploadKey string) string {
	return uploadKey + ".extracted.txt"
}

// ApplyPrefix joins an optional bucket prefix and a key with exactly one slash.
func ApplyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(strings.TrimSpace(prefix), "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}
