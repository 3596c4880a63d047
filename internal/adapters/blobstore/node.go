package blobstore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

// OpenerNodeID is the unique identifier for the blob store Graft node.
const OpenerNodeID graft.ID = "adapter.blobstore"

// Opener opens the local store of a workspace once its settings are known.
type Opener func(dir string, c domain.Compression, verifier ports.ContentHasher) (*Store, error)

func init() {
	graft.Register(graft.Node[Opener]{
		ID:        OpenerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (Opener, error) {
			return func(dir string, c domain.Compression, verifier ports.ContentHasher) (*Store, error) {
				return NewLocal(dir, c, WithVerifier(verifier))
			}, nil
		},
	})
}
