package codec

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/core/ports"
)

// FactoryNodeID is the unique identifier for the codec factory Graft node.
const FactoryNodeID graft.ID = "adapter.codec"

// Factory resolves a codec by its configured name.
type Factory func(name string) (ports.Codec, error)

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        FactoryNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (Factory, error) {
			return New, nil
		},
	})
}
