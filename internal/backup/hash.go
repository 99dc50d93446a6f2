package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

func newHash(alg domain.HashAlgorithm) (hash.Hash, error) {
	switch alg {
	case "", domain.HashSHA256:
		return sha256.New(), nil
	case domain.HashBLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", alg)
	}
}

// HashFile returns the hex content hash of the file at path.
func HashFile(path string, alg domain.HashAlgorithm) (string, error) {
	h, err := newHash(alg)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path) // #nosec G304 - path comes from the configured tree
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
