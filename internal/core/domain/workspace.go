package domain

import (
	"path/filepath"
	"time"
)

// Compression names a blob compression codec.
type Compression string

const (
	// CompressionNone stores blobs as-is.
	CompressionNone Compression = "none"
	// CompressionZstd stores blobs zstd-compressed.
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 stores blobs lz4-compressed.
	CompressionLZ4 Compression = "lz4"
)

// Observer names accepted in CacheSettings.Observers.
const (
	ObserverReport   = "report"
	ObserverFSNotify = "fsnotify"
)

// CacheSettings configures one cache session.
type CacheSettings struct {
	// Dir is the blob store directory, relative to the workspace root unless absolute.
	Dir             string
	HashAlgorithm   HashAlgorithm
	Compression     Compression
	Codec           string
	MaxSelectors    int
	RequirePersist  bool
	SentinelTimeout time.Duration
	Observers       []string
}

// DefaultCacheSettings returns the settings used for fields memo.yaml leaves out.
func DefaultCacheSettings() CacheSettings {
	return CacheSettings{
		Dir:             DefaultCachePath(),
		HashAlgorithm:   DefaultHashAlgorithm,
		Compression:     CompressionZstd,
		Codec:           "json",
		MaxSelectors:    DefaultMaxSelectors,
		SentinelTimeout: 30 * time.Second,
		Observers:       []string{ObserverReport, ObserverFSNotify},
	}
}

// Workspace is a loaded memo.yaml: the repository root, its node graph and cache settings.
type Workspace struct {
	Root  string
	Graph *Graph
	Cache CacheSettings
}

// CacheDir returns the absolute blob store directory.
func (w *Workspace) CacheDir() string {
	if filepath.IsAbs(w.Cache.Dir) {
		return w.Cache.Dir
	}
	return filepath.Join(w.Root, w.Cache.Dir)
}
