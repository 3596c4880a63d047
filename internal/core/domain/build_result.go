package domain

import (
	"maps"
	"slices"
	"time"
)

// NodeBuildResult is the metadata record stored at index 0 of a content hash list.
// Outputs is the source of truth for pairing output paths with content hashes.
type NodeBuildResult struct {
	// Outputs maps repository-relative output paths to their content hash.
	Outputs map[string]ContentHash `json:"outputs" cbor:"1,keyasint"`
	// CreatedAt is when the result was produced by execution.
	CreatedAt time.Time `json:"createdAt" cbor:"2,keyasint"`
	// Duration is how long the producing execution took.
	Duration time.Duration `json:"duration,omitzero" cbor:"3,keyasint,omitempty"`
}

// NewNodeBuildResult creates a result stamped with the current time.
func NewNodeBuildResult(outputs map[string]ContentHash, duration time.Duration) *NodeBuildResult {
	if outputs == nil {
		outputs = map[string]ContentHash{}
	}
	return &NodeBuildResult{
		Outputs:   outputs,
		CreatedAt: time.Now().UTC(),
		Duration:  duration,
	}
}

// OutputPaths returns the output paths in their stable iteration order.
func (r *NodeBuildResult) OutputPaths() []string {
	paths := slices.Collect(maps.Keys(r.Outputs))
	SortPathsFold(paths)
	return paths
}

// OutputHashes returns the output hashes in OutputPaths order.
func (r *NodeBuildResult) OutputHashes() []ContentHash {
	paths := r.OutputPaths()
	hashes := make([]ContentHash, len(paths))
	for i, p := range paths {
		hashes[i] = r.Outputs[p]
	}
	return hashes
}
