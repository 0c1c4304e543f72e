package index

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/scanner"
	"github.com/seekspace/seekd/internal/store"
)

// ChangeDetector decides whether an observed file needs reindexing. The base
// rule compares mtime and size against the last indexed record; hash
// verification catches filesystems with unreliable mtimes at the cost of
// reading unchanged files.
type ChangeDetector struct {
	// VerifyHash enables content-hash comparison when mtime and size match.
	VerifyHash bool
}

// Changed reports whether the file differs from its last indexed record and
// why. A nil record always reports changed.
func (d *ChangeDetector) Changed(record *store.FileRecord, file *scanner.FileInfo) (bool, string) {
	if record == nil {
		return true, "new"
	}
	if record.Size != file.Size {
		return true, "size"
	}
	if !record.ModTime.Equal(file.ModTime) {
		return true, "mtime"
	}
	if d.VerifyHash && record.Hash != "" {
		hash, err := HashFile(file.AbsPath)
		if err != nil {
			return true, "unreadable"
		}
		if hash != record.Hash {
			return true, "hash"
		}
	}
	return false, ""
}

// HashFile returns the hex SHA-256 of the file content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", seekerrors.Wrap(seekerrors.KindNotFound, "open file for hashing", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", seekerrors.Transient("hash file content", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of content already in memory.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
