package cacheclient

import (
	"context"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/afero"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// HashOutputs hashes the files at paths below root. Every queued file is hashed even
// when ctx is cancelled; the cancellation is reported once the pool has drained.
func (c *Client) HashOutputs(ctx context.Context, root string, paths []string) (map[string]domain.ContentHash, error) {
	var (
		mu     sync.Mutex
		hashes = make(map[string]domain.ContentHash, len(paths))
		g      errgroup.Group
	)
	g.SetLimit(c.opts.Parallelism)

	for _, p := range paths {
		g.Go(func() error {
			h, err := c.hashFile(filepath.Join(root, filepath.FromSlash(p)))
			if err != nil {
				return zerr.With(err, "path", p)
			}
			mu.Lock()
			hashes[p] = h
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return hashes, nil
}

// PlaceOutputs restores the outputs of result below root. Files that already hold the
// expected content are left alone; others are written to a temporary file and renamed
// into place.
func (c *Client) PlaceOutputs(ctx context.Context, root string, result *domain.NodeBuildResult) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Parallelism)

	for _, p := range result.OutputPaths() {
		want := result.Outputs[p]
		g.Go(func() error {
			if err := c.placeOutput(ctx, filepath.Join(root, filepath.FromSlash(p)), want); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrPlaceOutputsFailed.Error()), "path", p)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Client) placeOutput(ctx context.Context, target string, want domain.ContentHash) error {
	if current, err := c.hashFile(target); err == nil && current == want {
		return nil
	}

	rc, err := c.store.GetStream(ctx, want)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck // Read-only stream

	dir := filepath.Dir(target)
	if err := c.opts.FS.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}
	tmp, err := afero.TempFile(c.opts.FS, dir, ".memo-place-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		_ = c.opts.FS.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = c.opts.FS.Remove(tmpName)
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = c.opts.FS.Remove(tmpName)
		return err
	}
	if err := c.opts.FS.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = c.opts.FS.Remove(tmpName)
		return err
	}
	if err := c.opts.FS.Rename(tmpName, target); err != nil {
		_ = c.opts.FS.Remove(tmpName)
		return err
	}
	return nil
}

// putOutputs uploads every output of result that the store does not hold yet.
func (c *Client) putOutputs(ctx context.Context, root string, result *domain.NodeBuildResult) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Parallelism)

	seen := make(map[domain.ContentHash]struct{}, len(result.Outputs))
	for _, p := range slices.Sorted(maps.Keys(result.Outputs)) {
		h := result.Outputs[p]
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}

		full := filepath.Join(root, filepath.FromSlash(p))
		g.Go(func() error {
			err := c.putBlob(ctx, h, func() (io.ReadCloser, error) {
				return c.opts.FS.Open(full)
			})
			if err != nil {
				return zerr.With(err, "path", p)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Client) hashFile(path string) (domain.ContentHash, error) {
	f, err := c.opts.FS.Open(path)
	if err != nil {
		return domain.ContentHash{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Read-only file
	return c.hasher.HashReader(f)
}
