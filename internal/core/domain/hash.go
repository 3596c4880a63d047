// Package domain contains the core data model of the build cache: content hashes,
// fingerprints, path sets, selectors and node build results.
package domain

import (
	"bytes"
	"encoding/hex"
	"strings"

	"go.trai.ch/zerr"
)

// HashAlgorithm identifies the digest function behind a ContentHash.
type HashAlgorithm string

const (
	// HashNone tags the reserved zero hash. It is never produced by a hasher.
	HashNone HashAlgorithm = "none"
	// HashXXH64 is the 64-bit xxHash digest.
	HashXXH64 HashAlgorithm = "xxh64"
	// HashSHA256 is the SHA-256 digest.
	HashSHA256 HashAlgorithm = "sha256"
	// HashBlake3 is the 256-bit BLAKE3 digest.
	HashBlake3 HashAlgorithm = "blake3"
	// HashBlake2b is the 256-bit BLAKE2b digest.
	HashBlake2b HashAlgorithm = "blake2b"
)

// DefaultHashAlgorithm is used when the configuration does not name one.
const DefaultHashAlgorithm = HashXXH64

// ParseHashAlgorithm validates an algorithm name.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch alg := HashAlgorithm(strings.ToLower(s)); alg {
	case HashXXH64, HashSHA256, HashBlake3, HashBlake2b:
		return alg, nil
	case "":
		return DefaultHashAlgorithm, nil
	default:
		return "", zerr.With(ErrUnknownHashAlgorithm, "algorithm", s)
	}
}

// zeroDigestSize is the digest width of the reserved zero hash.
const zeroDigestSize = 32

// ContentHash is an immutable digest tagged with the algorithm that produced it.
// Two hashes are equal only if both the algorithm and every digest byte match,
// so ContentHash is safe to use as a map key.
type ContentHash struct {
	alg    HashAlgorithm
	digest string
}

// ZeroHash is the reserved all-zero hash used by the empty selector.
var ZeroHash = ContentHash{alg: HashNone, digest: string(make([]byte, zeroDigestSize))}

// NewContentHash copies digest into a new ContentHash.
func NewContentHash(alg HashAlgorithm, digest []byte) ContentHash {
	return ContentHash{alg: alg, digest: string(digest)}
}

// ParseContentHash parses the "alg:hex" text form produced by String.
func ParseContentHash(s string) (ContentHash, error) {
	alg, hexDigest, ok := strings.Cut(s, ":")
	if !ok || alg == "" {
		return ContentHash{}, zerr.With(ErrInvalidContentHash, "value", s)
	}
	digest, err := hex.DecodeString(hexDigest)
	if err != nil {
		return ContentHash{}, zerr.With(zerr.Wrap(err, ErrInvalidContentHash.Error()), "value", s)
	}
	return NewContentHash(HashAlgorithm(alg), digest), nil
}

// Algorithm returns the algorithm tag.
func (h ContentHash) Algorithm() HashAlgorithm {
	return h.alg
}

// Bytes returns a copy of the digest.
func (h ContentHash) Bytes() []byte {
	return []byte(h.digest)
}

// Hex returns the digest as lowercase hex, without the algorithm tag.
func (h ContentHash) Hex() string {
	return hex.EncodeToString([]byte(h.digest))
}

// IsZero reports whether h is the unset value.
func (h ContentHash) IsZero() bool {
	return h.alg == "" && h.digest == ""
}

// String returns the "alg:hex" form.
func (h ContentHash) String() string {
	if h.IsZero() {
		return ""
	}
	return string(h.alg) + ":" + h.Hex()
}

// Tagged returns the algorithm tag followed by the digest. It is the form fed into
// hash combination so that equal digests from different algorithms never collide.
func (h ContentHash) Tagged() []byte {
	var buf bytes.Buffer
	buf.Grow(len(h.alg) + 1 + len(h.digest))
	buf.WriteString(string(h.alg))
	buf.WriteByte(0)
	buf.WriteString(h.digest)
	return buf.Bytes()
}

// MarshalText implements encoding.TextMarshaler.
func (h ContentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *ContentHash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = ContentHash{}
		return nil
	}
	parsed, err := ParseContentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
