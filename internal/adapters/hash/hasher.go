// Package hash implements the content hasher over a selectable digest algorithm.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	stdhash "hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/crypto/blake2b"
)

var _ ports.ContentHasher = (*Hasher)(nil)

// copyBufferSize bounds the memory used while streaming file content.
const copyBufferSize = 64 * 1024

// Hasher computes content hashes with one algorithm. It is safe for concurrent use;
// every call creates its own digest state.
type Hasher struct {
	alg     domain.HashAlgorithm
	newHash func() stdhash.Hash
}

// New creates a Hasher for alg. An empty alg selects the default algorithm.
func New(alg domain.HashAlgorithm) (*Hasher, error) {
	parsed, err := domain.ParseHashAlgorithm(string(alg))
	if err != nil {
		return nil, err
	}

	var fn func() stdhash.Hash
	switch parsed {
	case domain.HashXXH64:
		fn = func() stdhash.Hash { return xxhash.New() }
	case domain.HashSHA256:
		fn = sha256.New
	case domain.HashBlake3:
		fn = func() stdhash.Hash { return blake3.New() }
	case domain.HashBlake2b:
		fn = func() stdhash.Hash {
			h, err := blake2b.New256(nil)
			if err != nil {
				// Only a key longer than 64 bytes fails, and no key is used.
				panic(err)
			}
			return h
		}
	default:
		return nil, zerr.With(domain.ErrUnknownHashAlgorithm, "algorithm", string(alg))
	}

	return &Hasher{alg: parsed, newHash: fn}, nil
}

// Algorithm returns the algorithm every hash is tagged with.
func (h *Hasher) Algorithm() domain.HashAlgorithm {
	return h.alg
}

// HashBytes hashes b.
func (h *Hasher) HashBytes(b []byte) domain.ContentHash {
	d := h.newHash()
	_, _ = d.Write(b)
	return h.sum(d)
}

// HashString hashes the bytes of s.
func (h *Hasher) HashString(s string) domain.ContentHash {
	d := h.newHash()
	_, _ = io.WriteString(d, s)
	return h.sum(d)
}

// HashReader streams r through the digest.
func (h *Hasher) HashReader(r io.Reader) (domain.ContentHash, error) {
	d := h.newHash()
	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(d, r, buf); err != nil {
		return domain.ContentHash{}, zerr.Wrap(err, domain.ErrFileHashFailed.Error())
	}
	return h.sum(d), nil
}

// HashFile hashes the content of the file at path.
func (h *Hasher) HashFile(path string) (domain.ContentHash, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return domain.ContentHash{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	sum, err := h.HashReader(f)
	if err != nil {
		return domain.ContentHash{}, zerr.With(err, "path", path)
	}
	return sum, nil
}

// Combine hashes the ordered parts. Each non-nil part is length-prefixed so that
// different splits of the same bytes never collide. Nil parts are skipped. The second
// result is false when no part contributed.
func (h *Hasher) Combine(parts ...[]byte) (domain.ContentHash, bool) {
	d := h.newHash()
	var prefix [binary.MaxVarintLen64]byte
	contributed := false
	for _, p := range parts {
		if p == nil {
			continue
		}
		contributed = true
		n := binary.PutUvarint(prefix[:], uint64(len(p)))
		_, _ = d.Write(prefix[:n])
		_, _ = d.Write(p)
	}
	if !contributed {
		return domain.ContentHash{}, false
	}
	return h.sum(d), true
}

// CombineHashes combines content hashes in order, each with its algorithm tag.
func (h *Hasher) CombineHashes(hashes ...domain.ContentHash) (domain.ContentHash, bool) {
	parts := make([][]byte, len(hashes))
	for i, c := range hashes {
		if c.IsZero() {
			continue
		}
		parts[i] = c.Tagged()
	}
	return h.Combine(parts...)
}

func (h *Hasher) sum(d stdhash.Hash) domain.ContentHash {
	return domain.NewContentHash(h.alg, d.Sum(nil))
}
