package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forage/internal/core/ports"
)

const StamperNodeID graft.ID = "adapter.fs.stamper"

func init() {
	graft.Register(graft.Node[ports.Verifier]{
		ID:        StamperNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Verifier, error) {
			return NewStamper(), nil
		},
	})
}
