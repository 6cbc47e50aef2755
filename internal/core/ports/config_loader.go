package ports

import "go.trai.ch/forage/internal/core/domain"

// ConfigLoader parses a manifest into a named source table.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Discover locates a manifest starting at dir and walking up through
	// parent directories. Fails with domain.ErrManifestNotFound when no
	// manifest exists on the path to the filesystem root.
	Discover(dir string) (string, error)

	// Load parses the manifest at path. Validation failures carry the
	// offending source's name.
	Load(path string) (domain.Sources, error)

	// Disable marks a source variant as unavailable. Loading a manifest
	// that uses a disabled variant fails with domain.ErrVariantDisabled.
	Disable(variant string)
}
