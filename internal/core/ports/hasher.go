package ports

import (
	"context"
	"io"

	"go.trai.ch/memo/internal/core/domain"
)

// ContentHasher computes content hashes with one algorithm fixed for its lifetime.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type ContentHasher interface {
	// Algorithm returns the algorithm every hash of this hasher is tagged with.
	Algorithm() domain.HashAlgorithm
	// HashBytes hashes b.
	HashBytes(b []byte) domain.ContentHash
	// HashString hashes the UTF-8 bytes of s.
	HashString(s string) domain.ContentHash
	// HashReader hashes a stream without holding it in memory.
	HashReader(r io.Reader) (domain.ContentHash, error)
	// HashFile hashes the content of the file at path.
	HashFile(path string) (domain.ContentHash, error)
	// Combine hashes the ordered parts. It returns false when there are no parts or
	// every part is nil, meaning the combination is not computable.
	Combine(parts ...[]byte) (domain.ContentHash, bool)
}

// FileHashProvider supplies the content hash of every tracked file of a repository.
type FileHashProvider interface {
	// FileHashes returns repository-relative, slash-separated paths mapped to their hash.
	// The result is a snapshot taken once per build.
	FileHashes(ctx context.Context, root string, hasher ContentHasher) (map[string]domain.ContentHash, error)
}
