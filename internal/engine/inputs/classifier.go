// Package inputs decides which paths are known repository files and supplies their
// content hash.
package inputs

import (
	"strings"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// Classifier is an immutable snapshot of tracked file hashes, taken at build start.
// It is safe for concurrent use.
type Classifier struct {
	hashes map[string]domain.ContentHash
}

// NewClassifier creates a Classifier over hashes. Keys are normalized to forward
// slashes; the map is copied.
func NewClassifier(hashes map[string]domain.ContentHash) *Classifier {
	normalized := make(map[string]domain.ContentHash, len(hashes))
	for p, h := range hashes {
		normalized[normalize(p)] = h
	}
	return &Classifier{hashes: normalized}
}

// ContainsPath reports whether relPath is a known, hashable repository file.
func (c *Classifier) ContainsPath(relPath string) bool {
	_, ok := c.hashes[normalize(relPath)]
	return ok
}

// Hash returns the content hash of relPath. Callers must check ContainsPath first;
// asking for an unknown path panics.
func (c *Classifier) Hash(relPath string) domain.ContentHash {
	h, ok := c.hashes[normalize(relPath)]
	if !ok {
		panic(zerr.With(zerr.New("hash requested for a path outside the input set"), "path", relPath))
	}
	return h
}

// Len returns the number of known files.
func (c *Classifier) Len() int {
	return len(c.hashes)
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(p, "./")
}
