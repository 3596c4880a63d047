package fs

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver expands predicted input patterns. A pattern is a plain path, a directory
// (every file below it), a filepath.Glob pattern, or a pattern with "**" segments that
// match any number of directories.
type Resolver struct {
	walker *Walker
}

// NewResolver creates a new Resolver.
func NewResolver(walker *Walker) *Resolver {
	return &Resolver{walker: walker}
}

// ResolveInputs returns the repository-relative, slash-separated files matched by
// inputs, de-duplicated and in case-insensitive order.
func (r *Resolver) ResolveInputs(inputs []string, root string) ([]string, error) {
	unique := make(map[string]struct{})
	add := func(abs string) {
		rel, err := filepath.Rel(root, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return
		}
		unique[filepath.ToSlash(rel)] = struct{}{}
	}

	for _, input := range inputs {
		pattern := filepath.ToSlash(input)
		if strings.Contains(pattern, "**") {
			if err := r.resolveRecursive(pattern, root, add); err != nil {
				return nil, err
			}
			continue
		}

		full := filepath.Join(root, filepath.FromSlash(pattern))
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "path", full)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				add(match)
				continue
			}
			for file := range r.walker.WalkFiles(match, nil) {
				add(file)
			}
		}
	}

	result := make([]string, 0, len(unique))
	for p := range unique {
		result = append(result, p)
	}
	domain.SortPathsFold(result)
	return result, nil
}

// resolveRecursive walks the static prefix of pattern and keeps the files whose
// relative path matches it.
func (r *Resolver) resolveRecursive(pattern, root string, add func(string)) error {
	if _, err := path.Match(strings.ReplaceAll(pattern, "**", "x"), ""); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to glob path"), "path", pattern)
	}

	segments := strings.Split(pattern, "/")
	static := 0
	for static < len(segments) && !hasMeta(segments[static]) {
		static++
	}
	base := filepath.Join(root, filepath.FromSlash(path.Join(segments[:static]...)))

	for file := range r.walker.WalkFiles(base, nil) {
		rel, err := filepath.Rel(root, file)
		if err != nil {
			continue
		}
		if matchSegments(segments, strings.Split(filepath.ToSlash(rel), "/")) {
			add(file)
		}
	}
	return nil
}

func hasMeta(segment string) bool {
	return strings.ContainsAny(segment, `*?[\`)
}

// matchSegments matches a path against a pattern segment by segment; "**" matches zero
// or more segments.
func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
