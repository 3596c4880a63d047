// Package nodecontext holds the per-node state of one build.
package nodecontext

import (
	"fmt"
	"sync"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

// Source tells where a build result came from.
type Source int

const (
	// SourceNone means the node has no build result yet.
	SourceNone Source = iota
	// SourceCache means the result was restored from the cache.
	SourceCache
	// SourceExecution means the result was produced by running the node.
	SourceExecution
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceExecution:
		return "execution"
	default:
		return "none"
	}
}

// Prediction is the static information computed for a node when the build begins.
type Prediction struct {
	// PredictedInputs are the expanded predicted inputs, sorted case-insensitively.
	PredictedInputs []string
}

// Context is the mutable holder of one node's build state. The build result can be
// set once.
type Context struct {
	node       *domain.Node
	prediction Prediction
	logger     ports.Logger

	mu     sync.RWMutex
	result *domain.NodeBuildResult
	source Source
}

// New creates the context for node.
func New(node *domain.Node, prediction Prediction, logger ports.Logger) *Context {
	return &Context{node: node, prediction: prediction, logger: logger}
}

// Node returns the node.
func (c *Context) Node() *domain.Node {
	return c.node
}

// Prediction returns the static prediction info.
func (c *Context) Prediction() Prediction {
	return c.prediction
}

// SetBuildResult records the result of the node. Only the first call wins; later calls
// are logged and return false.
func (c *Context) SetBuildResult(result *domain.NodeBuildResult, source Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source != SourceNone {
		c.logger.Warn(fmt.Sprintf("node %s already resolved from %s, ignoring result from %s",
			c.node.ID, c.source, source))
		return false
	}
	c.result = result
	c.source = source
	return true
}

// BuildResult returns the recorded result, or nil.
func (c *Context) BuildResult() *domain.NodeBuildResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// State returns where the result came from.
func (c *Context) State() Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}
