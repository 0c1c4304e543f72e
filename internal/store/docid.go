package store

import (
	"crypto/sha256"
	"encoding/base64"
	"path/filepath"
)

// DocID derives the stable document identifier for a file.
//
// The identifier is a URL-safe base64 encoding of the first 16 bytes of the
// SHA-256 digest of the canonicalized absolute path. Identity is a function
// of the path, not the content, so incremental updates overwrite in place and
// the same identifier keys both the lexical and vector index.
func DocID(absPath string) string {
	canonical := Canonicalize(absPath)
	sum := sha256.Sum256([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

// Canonicalize normalizes a path for identity purposes. Relative paths are
// resolved against the working directory.
func Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// ChunkID derives the vector-store key for one chunk of a document.
// Chunk ordinals are contiguous from zero.
func ChunkID(docID string, ordinal int) string {
	// Fixed-width ordinal keeps lexicographic order aligned with chunk order.
	const digits = "0123456789"
	buf := []byte{'0', '0', '0', '0'}
	for i := 3; i >= 0 && ordinal > 0; i-- {
		buf[i] = digits[ordinal%10]
		ordinal /= 10
	}
	return docID + "#" + string(buf)
}
