// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/memo/internal/core/domain"
)

// Executor defines the interface for running a node's command.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command of node from root. The env parameter holds extra
	// "KEY=VALUE" variables. The returned ProcessEvent describes the root process
	// even when the command fails.
	Execute(ctx context.Context, node *domain.Node, root string, env []string) (domain.ProcessEvent, error)
}
