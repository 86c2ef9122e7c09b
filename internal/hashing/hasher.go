// Package hashing computes the content fingerprints recorded in the status
// document. Hashes depend on byte content only, never on filesystem metadata,
// so re-running a stage over unchanged data yields an unchanged hash.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/macadmins/sofa-status/internal/domain"
)

// File returns the SHA-256 of the file's bytes as a lowercase hex string.
// A missing or unreadable file is an IO_ERROR: the calling stage cannot
// report status for an artifact it cannot read.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.NewAppErrorWithCause(
			domain.ErrIO,
			"failed to open artifact for hashing",
			500,
			err,
			map[string]any{"path": path},
		)
	}
	defer f.Close()

	digest, err := Reader(f)
	if err != nil {
		return "", domain.NewAppErrorWithCause(
			domain.ErrIO,
			"failed to read artifact while hashing",
			500,
			err,
			map[string]any{"path": path},
		)
	}
	return digest, nil
}

// Reader hashes everything readable from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Content hashes an in-memory buffer. Used when an artifact is constructed
// in memory before being written out, so the recorded hash reflects exactly
// the bytes that get persisted.
func Content(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
