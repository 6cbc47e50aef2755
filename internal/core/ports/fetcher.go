// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/forage/internal/core/domain"
)

// Fetcher materializes a source into a target directory.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch downloads or clones the source into dir, creating dir if
	// needed. On success dir contains a complete materialization of the
	// source and the returned artefact describes it. On failure the
	// contents of dir are unreliable and must not be registered in the
	// cache.
	Fetch(ctx context.Context, source domain.Source, dir string) (domain.Artefact, error)
}
