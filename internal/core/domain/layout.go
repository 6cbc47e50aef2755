package domain

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

const (
	// CacheFileName is the name of the cache backing file inside the cache root.
	CacheFileName = "forage-cache.json"

	// CacheEnvVar overrides the default cache root when set.
	CacheEnvVar = "FORAGE_CACHE"

	// ManifestTOML is the TOML manifest file name.
	ManifestTOML = "forage.toml"

	// ManifestYAML is the YAML manifest file name.
	ManifestYAML = "forage.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// ManifestNames lists the manifest file names tried during discovery, in
// preference order.
func ManifestNames() []string {
	return []string{ManifestTOML, ManifestYAML}
}

// DefaultCachePath resolves the cache root: the CacheEnvVar environment
// variable if set, otherwise a "forage" directory under the user cache dir.
func DefaultCachePath() (string, error) {
	if dir := os.Getenv(CacheEnvVar); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", zerr.Wrap(err, "could not determine cache directory")
	}
	return filepath.Join(base, "forage"), nil
}
