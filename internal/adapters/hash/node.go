package hash

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/core/domain"
)

// FactoryNodeID is the unique identifier for the hasher factory Graft node.
const FactoryNodeID graft.ID = "adapter.hash"

// Factory builds the session hasher once the workspace has chosen its algorithm.
type Factory func(alg domain.HashAlgorithm) (*Hasher, error)

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        FactoryNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (Factory, error) {
			return New, nil
		},
	})
}
