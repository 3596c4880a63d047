package domain

import (
	"slices"
	"strings"
)

// PathSet is the ordered list of repository-relative paths a node read beyond its
// predicted inputs. It is immutable once built and always sorted case-insensitively.
type PathSet struct {
	paths []string
}

// NewPathSet de-duplicates and sorts paths. It returns nil when paths is empty so that an
// absent path set is never confused with an empty one.
func NewPathSet(paths []string) *PathSet {
	if len(paths) == 0 {
		return nil
	}
	sorted := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		sorted = append(sorted, p)
	}
	SortPathsFold(sorted)
	return &PathSet{paths: sorted}
}

// Paths returns a copy of the sorted paths.
func (p *PathSet) Paths() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.paths)
}

// Len returns the number of paths.
func (p *PathSet) Len() int {
	if p == nil {
		return 0
	}
	return len(p.paths)
}

// PathSetRecord is the wire form of a PathSet.
type PathSetRecord struct {
	Paths []string `json:"paths" cbor:"1,keyasint"`
}

// Record returns the serializable form of the path set.
func (p *PathSet) Record() PathSetRecord {
	return PathSetRecord{Paths: p.Paths()}
}

// PathSet rebuilds the immutable PathSet from a decoded record.
func (r PathSetRecord) PathSet() *PathSet {
	return NewPathSet(r.Paths)
}

// ComparePathsFold orders paths case-insensitively, falling back to ordinal order so the
// ordering is total.
func ComparePathsFold(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortPathsFold sorts paths in place with ComparePathsFold.
func SortPathsFold(paths []string) {
	slices.SortFunc(paths, ComparePathsFold)
}
