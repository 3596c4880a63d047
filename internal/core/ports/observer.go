package ports

import (
	"context"

	"go.trai.ch/memo/internal/core/domain"
)

// EventSink receives observer events tagged with the executing context they belong to.
type EventSink interface {
	ReportFileAccess(ev domain.FileAccessEvent, contextID string)
	ReportProcess(ev domain.ProcessEvent, contextID string)
}

// Observer watches the file accesses of one node execution.
//
//go:generate go run go.uber.org/mock/mockgen -source=observer.go -destination=mocks/mock_observer.go -package=mocks
type Observer interface {
	// Observe starts observing an execution of node. Events are reported to sink
	// under contextID.
	Observe(ctx context.Context, contextID string, node *domain.Node, root string, sink EventSink) (Observation, error)
}

// ScopedObserver is an Observer that attributes every change below a directory tree to
// the node watching it. Nodes whose trees overlap must not run at the same time.
type ScopedObserver interface {
	Observer
	// WatchScope returns the tree watched for node, or false when node is not watched
	// by tree.
	WatchScope(node *domain.Node, root string) (string, bool)
}

// Observation is one running observation.
type Observation interface {
	// Env returns extra environment variables the observed process must receive.
	Env() []string
	// Stop flushes every pending event to the sink and then reports the sentinel event.
	Stop() error
}
