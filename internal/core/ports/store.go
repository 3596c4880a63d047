package ports

import (
	"context"
	"io"

	"go.trai.ch/memo/internal/core/domain"
)

// BlobStore is a content-addressable store with an additional keyed namespace.
// Get operations return domain.ErrBlobNotFound when nothing is stored.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BlobStore interface {
	// PutByHash stores the content of r under hash. Putting content that is already
	// present is a successful no-op.
	PutByHash(ctx context.Context, hash domain.ContentHash, r io.Reader) error
	// HasHash reports whether content is stored under hash.
	HasHash(ctx context.Context, hash domain.ContentHash) (bool, error)
	// GetStream opens the content stored under hash.
	GetStream(ctx context.Context, hash domain.ContentHash) (io.ReadCloser, error)
	// PutWithKey stores the content of r under key, replacing any previous value.
	PutWithKey(ctx context.Context, key string, r io.Reader) error
	// HasKey reports whether a value is stored under key.
	HasKey(ctx context.Context, key string) (bool, error)
	// GetByKey opens the value stored under key.
	GetByKey(ctx context.Context, key string) (io.ReadCloser, error)
}

// Codec serializes cache records. Decoding must ignore unknown fields.
type Codec interface {
	// Name returns the codec name used in configuration.
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
