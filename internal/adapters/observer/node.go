package observer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the observer factory Graft node.
const NodeID graft.ID = "adapter.observer"

// Factory creates an Observer for the configured observer names.
type Factory func(kinds []string) (*Observer, error)

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (Factory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(kinds []string) (*Observer, error) {
				return New(log, kinds)
			}, nil
		},
	})
}
