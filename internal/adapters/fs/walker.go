// Package fs provides file system adapters for walking the repository and resolving
// predicted input patterns.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"

	"go.trai.ch/memo/internal/core/domain"
)

// defaultSkipDirs are never descended into.
var defaultSkipDirs = []string{".git", ".jj", domain.MemoDirName, "node_modules"}

// Walker provides file walking functionality.
type Walker struct {
	skipDirs []string
}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{skipDirs: defaultSkipDirs}
}

// WalkFiles yields every regular file below root as a path starting with root.
// Directories named in the skip list or matching one of ignores are skipped, as are
// files matching ignores.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && w.skipped(d, ignores) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) skipped(d fs.DirEntry, ignores []string) bool {
	name := d.Name()
	if d.IsDir() && slices.Contains(w.skipDirs, name) {
		return true
	}
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}
