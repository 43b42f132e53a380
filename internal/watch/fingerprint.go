package watch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Fingerprint hashes the whole file. A reload is skipped when the
// fingerprint did not change, since touching a file also fires events.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16]), nil // First 16 bytes = 32 hex chars
}
