package domain

import "strings"

// NodeStatus is the lifecycle state of a node during one build.
type NodeStatus string

const (
	// NodeStatusPending is a node that has not started.
	NodeStatusPending NodeStatus = "pending"
	// NodeStatusRunning is a node whose command is executing.
	NodeStatusRunning NodeStatus = "running"
	// NodeStatusCompleted is a node that executed successfully.
	NodeStatusCompleted NodeStatus = "completed"
	// NodeStatusFailed is a node whose execution failed.
	NodeStatusFailed NodeStatus = "failed"
	// NodeStatusCached is a node satisfied from the cache.
	NodeStatusCached NodeStatus = "cached"
	// NodeStatusSkipped is a node that never ran because a dependency failed.
	NodeStatusSkipped NodeStatus = "skipped"
)

// IsTerminal reports whether the status is final.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusCompleted, NodeStatusFailed, NodeStatusCached, NodeStatusSkipped:
		return true
	default:
		return false
	}
}

// ParseNodeStatus converts a string to a NodeStatus, defaulting to pending if unknown.
func ParseNodeStatus(s string) NodeStatus {
	switch st := NodeStatus(strings.ToLower(s)); st {
	case NodeStatusPending, NodeStatusRunning, NodeStatusCompleted,
		NodeStatusFailed, NodeStatusCached, NodeStatusSkipped:
		return st
	default:
		return NodeStatusPending
	}
}

// BuildResultSource tells where a node's build result came from.
type BuildResultSource uint8

const (
	// SourceNone means no result has been recorded.
	SourceNone BuildResultSource = iota
	// SourceCache means the result was replayed from the cache.
	SourceCache
	// SourceExecution means the result was produced by running the node.
	SourceExecution
)

// String returns the source name.
func (s BuildResultSource) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceExecution:
		return "execution"
	default:
		return "none"
	}
}
