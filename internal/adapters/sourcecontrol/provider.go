// Package sourcecontrol supplies the content hash of every tracked file of a repository.
package sourcecontrol

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.trai.ch/memo/internal/adapters/fs"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var (
	_ ports.FileHashProvider = (*Git)(nil)
	_ ports.FileHashProvider = (*Walker)(nil)
	_ ports.FileHashProvider = (*Auto)(nil)
)

// Git lists tracked files with git and hashes their working-tree content.
type Git struct {
	// Binary is the git executable. Empty means "git" from PATH.
	Binary string
	// Parallelism bounds concurrent file hashing. Zero means GOMAXPROCS.
	Parallelism int
}

// FileHashes hashes every file git tracks under root. Tracked files that are missing
// from the working tree are left out.
func (g *Git) FileHashes(
	ctx context.Context,
	root string,
	hasher ports.ContentHasher,
) (map[string]domain.ContentHash, error) {
	paths, err := g.listTracked(ctx, root)
	if err != nil {
		return nil, err
	}
	return hashAll(ctx, root, paths, hasher, g.Parallelism)
}

func (g *Git) listTracked(ctx context.Context, root string) ([]string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, "-C", root, "ls-files", "-z", "--cached") //nolint:gosec // fixed arguments
	out, err := cmd.Output()
	if err != nil {
		err = zerr.Wrap(err, domain.ErrSourceControlFailed.Error())
		return nil, zerr.With(err, "root", root)
	}

	var paths []string
	for entry := range strings.SplitSeq(string(out), "\x00") {
		if entry != "" {
			paths = append(paths, entry)
		}
	}
	return paths, nil
}

// Walker hashes every regular file under root. It stands in for git in directories
// that are not repositories.
type Walker struct {
	walker      *fs.Walker
	Parallelism int
}

// NewWalker creates a Walker provider over the given file walker.
func NewWalker(walker *fs.Walker) *Walker {
	return &Walker{walker: walker}
}

// FileHashes hashes every file below root, skipping tool directories.
func (w *Walker) FileHashes(
	ctx context.Context,
	root string,
	hasher ports.ContentHasher,
) (map[string]domain.ContentHash, error) {
	var paths []string
	for file := range w.walker.WalkFiles(root, nil) {
		rel, err := filepath.Rel(root, file)
		if err != nil {
			continue
		}
		paths = append(paths, filepath.ToSlash(rel))
	}
	return hashAll(ctx, root, paths, hasher, w.Parallelism)
}

// Auto uses Git when root is inside a git work tree and Walker otherwise.
type Auto struct {
	Git    *Git
	Walker *Walker
	Logger ports.Logger
}

// FileHashes delegates to the provider that fits root.
func (a *Auto) FileHashes(
	ctx context.Context,
	root string,
	hasher ports.ContentHasher,
) (map[string]domain.ContentHash, error) {
	if isGitWorkTree(root) {
		hashes, err := a.Git.FileHashes(ctx, root, hasher)
		if err == nil {
			return hashes, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		a.Logger.Warn("git file listing failed, hashing the directory tree instead: " + err.Error())
	}
	return a.Walker.FileHashes(ctx, root, hasher)
}

func isGitWorkTree(root string) bool {
	for dir := root; ; {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// hashAll hashes the slash-separated paths relative to root on a bounded pool.
func hashAll(
	ctx context.Context,
	root string,
	paths []string,
	hasher ports.ContentHasher,
	parallelism int,
) (map[string]domain.ContentHash, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	hashes := make([]domain.ContentHash, len(paths))
	present := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			full := filepath.Join(root, filepath.FromSlash(p))
			info, err := os.Lstat(full)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			h, err := hasher.HashFile(full)
			if err != nil {
				return err
			}
			hashes[i] = h
			present[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string]domain.ContentHash, len(paths))
	for i, p := range paths {
		if present[i] {
			result[p] = hashes[i]
		}
	}
	return result, nil
}
