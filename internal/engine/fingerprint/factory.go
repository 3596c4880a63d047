// Package fingerprint computes the weak and strong fingerprints that key the cache.
package fingerprint

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/inputs"
)

// Section markers keep the parts of the weak fingerprint from running into each other.
var (
	sectionIdentity     = []byte("identity")
	sectionProperties   = []byte("properties")
	sectionInputs       = []byte("inputs")
	sectionDependencies = []byte("dependencies")
)

// ResultSource reports the outputs of nodes that already finished in this build.
type ResultSource interface {
	// Outputs returns the outputs of nodeID. ok is false while they are unknown.
	Outputs(nodeID domain.InternedString) (outputs map[string]domain.ContentHash, ok bool)
}

// Factory computes fingerprints for one build session. It is safe for concurrent use.
type Factory struct {
	hasher     ports.ContentHasher
	classifier *inputs.Classifier
	results    ResultSource
	resolver   ports.InputResolver
	root       string
	logger     ports.Logger

	mu           sync.RWMutex
	stringHashes map[string]domain.ContentHash
	predicted    map[domain.InternedString][]string
}

// NewFactory creates a Factory. root is the repository root the resolver expands
// predicted input patterns against.
func NewFactory(
	hasher ports.ContentHasher,
	classifier *inputs.Classifier,
	results ResultSource,
	resolver ports.InputResolver,
	root string,
	logger ports.Logger,
) *Factory {
	return &Factory{
		hasher:       hasher,
		classifier:   classifier,
		results:      results,
		resolver:     resolver,
		root:         root,
		logger:       logger,
		stringHashes: make(map[string]domain.ContentHash),
		predicted:    make(map[domain.InternedString][]string),
	}
}

// WeakFingerprint combines, in order, the node identity, its properties as declared, its
// tracked predicted inputs and the outputs of its dependencies. It returns nil when a
// dependency's outputs are still unknown.
func (f *Factory) WeakFingerprint(node *domain.Node) domain.Fingerprint {
	parts := [][]byte{sectionIdentity, f.hashString(node.ID.String()).Tagged()}

	parts = append(parts, sectionProperties)
	for _, p := range node.Properties {
		parts = append(parts, f.hashString(p.String()).Tagged())
	}

	predicted, err := f.PredictedInputs(node)
	if err != nil {
		f.logger.Warn(fmt.Sprintf("node %s is not cacheable: %v", node.ID, err))
		return nil
	}
	parts = append(parts, sectionInputs)
	for _, p := range predicted {
		if !f.classifier.ContainsPath(p) {
			continue
		}
		parts = append(parts, f.hashString(p).Tagged(), f.classifier.Hash(p).Tagged())
	}

	parts = append(parts, sectionDependencies)
	for _, dep := range node.Dependencies {
		outputs, ok := f.results.Outputs(dep)
		if !ok {
			f.logger.Debug(fmt.Sprintf("node %s is not cacheable: outputs of %s are unknown", node.ID, dep))
			return nil
		}
		keys := slices.Collect(maps.Keys(outputs))
		domain.SortPathsFold(keys)
		parts = append(parts, f.hashString(dep.String()).Tagged())
		for _, k := range keys {
			parts = append(parts, f.hashString(k).Tagged(), outputs[k].Tagged())
		}
	}

	sum, ok := f.hasher.Combine(parts...)
	if !ok {
		return nil
	}
	return domain.Fingerprint(sum.Tagged())
}

// PathSet reduces the observed inputs of an execution to the tracked files the node
// read beyond its predicted inputs. It returns nil when nothing remains.
func (f *Factory) PathSet(node *domain.Node, observed []string) *domain.PathSet {
	predicted, err := f.PredictedInputs(node)
	if err != nil {
		f.logger.Warn(fmt.Sprintf("node %s: %v", node.ID, err))
		predicted = nil
	}
	skip := make(map[string]struct{}, len(predicted))
	for _, p := range predicted {
		skip[p] = struct{}{}
	}

	var hashable, excluded []string
	for _, p := range observed {
		if _, ok := skip[p]; ok {
			continue
		}
		if f.classifier.ContainsPath(p) {
			hashable = append(hashable, p)
		} else {
			excluded = append(excluded, p)
		}
	}
	if len(excluded) > 0 {
		f.logger.Debug(fmt.Sprintf("node %s read %d untracked paths", node.ID, len(excluded)))
	}
	return domain.NewPathSet(hashable)
}

// StrongFingerprint combines the hashes of the tracked files in pathSet. It returns nil
// when pathSet is nil or none of its files are tracked any more.
func (f *Factory) StrongFingerprint(pathSet *domain.PathSet) []byte {
	if pathSet == nil {
		return nil
	}
	var parts [][]byte
	for _, p := range pathSet.Paths() {
		if !f.classifier.ContainsPath(p) {
			continue
		}
		parts = append(parts, f.hashString(p).Tagged(), f.classifier.Hash(p).Tagged())
	}
	sum, ok := f.hasher.Combine(parts...)
	if !ok {
		return nil
	}
	return sum.Tagged()
}

// PredictedInputs returns the expanded predicted inputs of node, sorted
// case-insensitively. Expansion happens once per node and session.
func (f *Factory) PredictedInputs(node *domain.Node) ([]string, error) {
	f.mu.RLock()
	cached, ok := f.predicted[node.ID]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	patterns := make([]string, len(node.Inputs))
	for i, in := range node.Inputs {
		patterns[i] = in.String()
	}
	resolved, err := f.resolver.ResolveInputs(patterns, f.root)
	if err != nil {
		return nil, err
	}
	domain.SortPathsFold(resolved)

	f.mu.Lock()
	f.predicted[node.ID] = resolved
	f.mu.Unlock()
	return resolved, nil
}

func (f *Factory) hashString(s string) domain.ContentHash {
	f.mu.RLock()
	h, ok := f.stringHashes[s]
	f.mu.RUnlock()
	if ok {
		return h
	}

	h = f.hasher.HashString(s)
	f.mu.Lock()
	f.stringHashes[s] = h
	f.mu.Unlock()
	return h
}
