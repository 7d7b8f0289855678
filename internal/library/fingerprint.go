package library

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns the hex BLAKE3 digest of the given parts, in order.
// The watcher compares fingerprints to skip reloads of unchanged files.
func Fingerprint(parts ...[]byte) string {
	h := blake3.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
