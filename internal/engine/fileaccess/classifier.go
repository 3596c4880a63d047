// Package fileaccess turns the raw file-access stream of one node execution into the
// node's realized inputs and outputs.
package fileaccess

import (
	"context"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

// Reasons recorded for events that do not take part in classification.
const (
	ReasonFailed        = "failed"
	ReasonProbe         = "probe-or-enumeration"
	ReasonOutsideRoot   = "outside-repository"
	ReasonUnknown       = "unknown-operation"
	ReasonLate          = "after-finish"
	ReasonDirectory     = "directory"
	ReasonRemoved       = "removed"
	ReasonDirRemoved    = "removed-with-directory"
	ReasonInternalState = "memo-workspace"
)

// Diagnostic is an access that was recorded but not classified.
type Diagnostic struct {
	Path      string
	Operation domain.Operation
	Reason    string
}

// Result holds the classified, repository-relative paths in case-insensitive order.
type Result struct {
	Inputs  []string
	Outputs []string
}

type access struct {
	seq       uint64
	op        domain.Operation
	requested domain.RequestedAccess
	isDir     bool
	augmented bool
}

func (a access) isWrite() bool {
	if a.requested.Has(domain.AccessWrite) {
		return true
	}
	switch a.op {
	case domain.OpWriteFile, domain.OpDeleteFile, domain.OpMoveSource, domain.OpMoveDestination:
		return true
	default:
		return false
	}
}

func (a access) removesFile() bool {
	return a.op == domain.OpDeleteFile || a.op == domain.OpMoveSource
}

// Classifier accumulates the accesses of one node execution. It moves from collecting
// to finished exactly once. Events may arrive concurrently from many processes of the
// same node; one mutex keeps sequence numbers strictly increasing.
type Classifier struct {
	root   string
	logger ports.Logger

	mu          sync.Mutex
	finished    bool
	seq         uint64
	paths       map[string][]access
	removedDirs map[string][]uint64
	processes   []domain.ProcessEvent
	diagnostics []Diagnostic

	sentinelOnce sync.Once
	sentinel     chan struct{}
}

// NewClassifier creates a Classifier for an execution below the repository root.
func NewClassifier(root string, logger ports.Logger) *Classifier {
	return &Classifier{
		root:        filepath.Clean(root),
		logger:      logger,
		paths:       make(map[string][]access),
		removedDirs: make(map[string][]uint64),
		sentinel:    make(chan struct{}),
	}
}

// ReportFileAccess records one file-access event. The sentinel event releases
// WaitForSentinel and is not recorded.
func (c *Classifier) ReportFileAccess(ev domain.FileAccessEvent) {
	if ev.IsSentinel() {
		c.sentinelOnce.Do(func() { close(c.sentinel) })
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		c.diagnostics = append(c.diagnostics, Diagnostic{Path: ev.Path, Operation: ev.Operation, Reason: ReasonLate})
		return
	}

	c.seq++
	seq := c.seq

	if ev.Error != domain.ErrorSuccess && ev.Error != domain.ErrorAlreadyExists {
		c.diagnose(ev, ReasonFailed)
		return
	}

	rel, ok := c.relative(ev.Path)
	if !ok {
		c.diagnose(ev, ReasonOutsideRoot)
		return
	}
	if rel == domain.MemoDirName || strings.HasPrefix(rel, domain.MemoDirName+"/") {
		c.diagnose(ev, ReasonInternalState)
		return
	}

	if ev.Operation == domain.OpProbe || ev.Operation == domain.OpEnumerate ||
		ev.RequestedAccess.IsProbeOrEnumerationOnly() {
		c.diagnose(ev, ReasonProbe)
		return
	}

	switch ev.Operation {
	case domain.OpRemoveDirectory:
		c.removedDirs[rel] = append(c.removedDirs[rel], seq)
		return
	case domain.OpCreateDirectory:
		c.diagnose(ev, ReasonDirectory)
		return
	case domain.OpUnknown:
		if ev.RequestedAccess == domain.AccessNone {
			c.diagnose(ev, ReasonUnknown)
			return
		}
	}

	c.paths[rel] = append(c.paths[rel], access{
		seq:       seq,
		op:        ev.Operation,
		requested: ev.RequestedAccess,
		isDir:     ev.IsDirectory,
		augmented: ev.IsAugmented,
	})
}

// ReportProcess records a process lifecycle event.
func (c *Classifier) ReportProcess(ev domain.ProcessEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processes = append(c.processes, ev)
}

// WaitForSentinel blocks until the sentinel event arrives, ctx ends or timeout passes.
func (c *Classifier) WaitForSentinel(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.sentinel:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return zerr.With(zerr.Wrap(domain.ErrSentinelTimeout, "wait for sentinel"), "timeout", timeout.String())
	}
}

// Finish classifies every recorded path. A path that was written and still exists is
// an output. A path that was only read and still exists is an input. Calling Finish
// twice panics with domain.ErrClassifierInvariant.
func (c *Classifier) Finish() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		panic(zerr.With(zerr.Wrap(domain.ErrClassifierInvariant, "finish called twice"), "root", c.root))
	}
	c.finished = true

	var result Result
	for _, p := range slices.Sorted(maps.Keys(c.paths)) {
		accesses := c.paths[p]
		c.checkHistory(p, accesses)

		if slices.ContainsFunc(accesses, func(a access) bool { return a.isDir }) {
			c.diagnostics = append(c.diagnostics, Diagnostic{Path: p, Reason: ReasonDirectory})
			continue
		}

		last := lastRelevant(accesses)
		if last.removesFile() {
			c.diagnostics = append(c.diagnostics, Diagnostic{Path: p, Operation: last.op, Reason: ReasonRemoved})
			continue
		}
		if c.removedWithDirectory(p, last.seq) {
			c.diagnostics = append(c.diagnostics, Diagnostic{Path: p, Reason: ReasonDirRemoved})
			continue
		}

		if slices.ContainsFunc(accesses, access.isWrite) {
			result.Outputs = append(result.Outputs, p)
		} else {
			result.Inputs = append(result.Inputs, p)
		}
	}

	domain.SortPathsFold(result.Inputs)
	domain.SortPathsFold(result.Outputs)
	return result
}

// Processes returns the recorded process events.
func (c *Classifier) Processes() []domain.ProcessEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.processes)
}

// Diagnostics returns the accesses left out of classification.
func (c *Classifier) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.diagnostics)
}

func (c *Classifier) diagnose(ev domain.FileAccessEvent, reason string) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Path: ev.Path, Operation: ev.Operation, Reason: reason})
}

// checkHistory panics when the accumulated history of p is corrupt.
func (c *Classifier) checkHistory(p string, accesses []access) {
	if len(accesses) == 0 {
		panic(zerr.With(zerr.Wrap(domain.ErrClassifierInvariant, "empty access history"), "path", p))
	}
	for i := 1; i < len(accesses); i++ {
		if accesses[i].seq <= accesses[i-1].seq {
			panic(zerr.With(zerr.Wrap(domain.ErrClassifierInvariant, "sequence numbers out of order"), "path", p))
		}
	}
}

// removedWithDirectory reports whether an ancestor directory of p was removed after
// the last access to p, so p cannot exist any more.
func (c *Classifier) removedWithDirectory(p string, lastSeq uint64) bool {
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		for _, seq := range c.removedDirs[dir] {
			if seq > lastSeq {
				return true
			}
		}
	}
	return false
}

// lastRelevant returns the last access, skipping trailing augmented reads. When the
// path was also observed directly, augmented accesses carry no ordering and every
// trailing one is skipped.
func lastRelevant(accesses []access) access {
	observed := slices.ContainsFunc(accesses, func(a access) bool { return !a.augmented })
	i := len(accesses) - 1
	for i > 0 && accesses[i].augmented && (observed || !accesses[i].isWrite()) {
		i--
	}
	return accesses[i]
}

// relative maps an observed path to a repository-relative, slash-separated path.
func (c *Classifier) relative(p string) (string, bool) {
	p = stripNativePrefix(p)
	if p == "" {
		return "", false
	}

	if !filepath.IsAbs(p) {
		rel := path.Clean(filepath.ToSlash(p))
		if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
			return "", false
		}
		return rel, true
	}

	rel, err := filepath.Rel(c.root, filepath.Clean(p))
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// stripNativePrefix removes long-path and native-path prefixes.
func stripNativePrefix(p string) string {
	if rest, ok := strings.CutPrefix(p, `\\?\UNC\`); ok {
		return `\\` + rest
	}
	for _, prefix := range []string{`\\?\`, `\??\`, `\\.\`} {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			return rest
		}
	}
	return p
}
