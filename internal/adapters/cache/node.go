package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forage/internal/core/ports"
)

const NodeID graft.ID = "adapter.store_opener"

func init() {
	graft.Register(graft.Node[ports.StoreOpener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.StoreOpener, error) {
			return Opener{}, nil
		},
	})
}
