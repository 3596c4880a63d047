// Package blobstore implements the local content-addressable blob store.
package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BlobStore = (*Store)(nil)

const (
	casDir  = "cas"
	keysDir = "keys"
	tmpDir  = "tmp"
)

// Store keeps blobs in an afero filesystem. Content lives under cas/<alg>/<xx>/<hex>
// and keyed records under keys/<key>. Writes go to a temporary file first and are
// renamed into place, so readers never see partial content.
type Store struct {
	fs     afero.Fs
	marker byte
	hasher ports.ContentHasher
}

// Option configures a Store.
type Option func(*Store)

// WithVerifier makes PutByHash check that content hashes to the hash it is put under.
func WithVerifier(h ports.ContentHasher) Option {
	return func(s *Store) {
		s.hasher = h
	}
}

// New creates a store on fs writing blobs with compression c.
func New(fs afero.Fs, c domain.Compression, opts ...Option) (*Store, error) {
	marker, err := markerFor(c)
	if err != nil {
		return nil, err
	}
	s := &Store{fs: fs, marker: marker}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewLocal creates a store rooted at dir on the OS filesystem.
func NewLocal(dir string, c domain.Compression, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create cache directory"), "path", dir)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), c, opts...)
}

func hashPath(h domain.ContentHash) string {
	hexDigest := h.Hex()
	prefix := hexDigest
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return path.Join(casDir, string(h.Algorithm()), prefix, hexDigest)
}

func keyPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", zerr.With(domain.ErrInvalidBlobKey, "key", key)
	}
	return path.Join(keysDir, clean), nil
}

func notFound(kind, id string) error {
	return zerr.With(zerr.Wrap(domain.ErrBlobNotFound, "lookup "+kind), kind, id)
}

// PutByHash stores r under hash unless content is already present.
func (s *Store) PutByHash(ctx context.Context, hash domain.ContentHash, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.hasher != nil && s.hasher.Algorithm() != hash.Algorithm() {
		return zerr.With(domain.ErrHashAlgorithmMismatch, "hash", hash.String())
	}

	target := hashPath(hash)
	if ok, err := s.exists(target); err != nil || ok {
		return err
	}

	return s.writeAtomic(target, func(w io.Writer) error {
		if s.hasher == nil {
			_, err := io.Copy(w, r)
			return err
		}
		got, err := s.hasher.HashReader(io.TeeReader(r, w))
		if err != nil {
			return err
		}
		if got != hash {
			return zerr.With(zerr.With(domain.ErrBlobHashMismatch, "expected", hash.String()), "actual", got.String())
		}
		return nil
	})
}

// HasHash reports whether content is stored under hash.
func (s *Store) HasHash(ctx context.Context, hash domain.ContentHash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.exists(hashPath(hash))
}

// GetStream opens the content stored under hash.
func (s *Store) GetStream(ctx context.Context, hash domain.ContentHash) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := s.open(hashPath(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, notFound("hash", hash.String())
	}
	return rc, err
}

// PutWithKey stores r under key, replacing any previous value.
func (s *Store) PutWithKey(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := keyPath(key)
	if err != nil {
		return err
	}
	return s.writeAtomic(target, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// HasKey reports whether a value is stored under key.
func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target, err := keyPath(key)
	if err != nil {
		return false, err
	}
	return s.exists(target)
}

// GetByKey opens the value stored under key.
func (s *Store) GetByKey(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := keyPath(key)
	if err != nil {
		return nil, err
	}
	rc, err := s.open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, notFound("key", key)
	}
	return rc, err
}

// Usage walks the store and reports how many blobs and bytes it holds.
func (s *Store) Usage(ctx context.Context) (files int, size int64, err error) {
	err = afero.Walk(s.fs, ".", func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, os.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.Mode().IsRegular() {
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size, err
}

// Clear removes every blob and key.
func (s *Store) Clear(_ context.Context) error {
	for _, dir := range []string{casDir, keysDir, tmpDir} {
		if err := s.fs.RemoveAll(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to clear cache"), "path", dir)
		}
	}
	return nil
}

func (s *Store) exists(name string) (bool, error) {
	fi, err := s.fs.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !fi.IsDir(), nil
}

func (s *Store) open(name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}

	var marker [1]byte
	if _, err := io.ReadFull(f, marker[:]); err != nil {
		_ = f.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to read blob header"), "path", name)
	}

	dec, err := newDecompressReader(marker[0], f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &blobReader{ReadCloser: dec, file: f}, nil
}

// writeAtomic writes a marker byte and the compressed output of fill to a temporary
// file, then renames it to target.
func (s *Store) writeAtomic(target string, fill func(w io.Writer) error) (err error) {
	if err := s.fs.MkdirAll(tmpDir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create temp directory")
	}
	if err := s.fs.MkdirAll(path.Dir(target), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create blob directory"), "path", target)
	}

	tmp, err := afero.TempFile(s.fs, tmpDir, "put-")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write([]byte{s.marker}); err != nil {
		return zerr.Wrap(err, "failed to write blob header")
	}
	cw, err := compressWriter(s.marker, tmp)
	if err != nil {
		return err
	}
	if err = fill(cw); err != nil {
		_ = cw.Close()
		return zerr.With(zerr.Wrap(err, "failed to write blob"), "path", target)
	}
	if err = cw.Close(); err != nil {
		return zerr.Wrap(err, "failed to flush compressed blob")
	}
	if err = tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close temp file")
	}
	if err = s.fs.Rename(tmpName, target); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to commit blob"), "path", target)
	}
	return nil
}

type blobReader struct {
	io.ReadCloser
	file afero.File
}

func (b *blobReader) Close() error {
	_ = b.ReadCloser.Close()
	return b.file.Close()
}
