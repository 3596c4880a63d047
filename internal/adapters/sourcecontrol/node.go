package sourcecontrol

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/fs"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the file hash provider Graft node.
const NodeID graft.ID = "adapter.sourcecontrol"

func init() {
	graft.Register(graft.Node[ports.FileHashProvider]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.WalkerNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.FileHashProvider, error) {
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Auto{Git: &Git{}, Walker: NewWalker(walker), Logger: log}, nil
		},
	})
}
