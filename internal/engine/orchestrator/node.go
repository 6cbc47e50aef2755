package orchestrator

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forage/internal/adapters/fetch"
	"go.trai.ch/forage/internal/adapters/logger"
	"go.trai.ch/forage/internal/adapters/telemetry/progrock"
	"go.trai.ch/forage/internal/core/ports"
)

const NodeID graft.ID = "engine.orchestrator"

func init() {
	graft.Register(graft.Node[*Orchestrator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fetch.NodeID, progrock.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Orchestrator, error) {
			fetcher, err := graft.Dep[ports.Fetcher](ctx)
			if err != nil {
				return nil, err
			}
			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(fetcher, telemetry, log), nil
		},
	})
}
