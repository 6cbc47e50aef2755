// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/forage/internal/adapters/cache"
	_ "go.trai.ch/forage/internal/adapters/config"
	_ "go.trai.ch/forage/internal/adapters/fetch"
	_ "go.trai.ch/forage/internal/adapters/fs"
	_ "go.trai.ch/forage/internal/adapters/logger"
	_ "go.trai.ch/forage/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/forage/internal/app"
	_ "go.trai.ch/forage/internal/engine/orchestrator"
)
