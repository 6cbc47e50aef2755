package fetch

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forage/internal/adapters/fs"
	"go.trai.ch/forage/internal/adapters/logger"
	"go.trai.ch/forage/internal/core/ports"
)

const NodeID graft.ID = "adapter.fetcher"

func init() {
	graft.Register(graft.Node[ports.Fetcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, fs.StamperNodeID},
		Run: func(ctx context.Context) (ports.Fetcher, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			stamper, err := graft.Dep[ports.Verifier](ctx)
			if err != nil {
				return nil, err
			}
			return NewFetcher(log, stamper), nil
		},
	})
}
