package domain

import (
	"fmt"

	"go.trai.ch/zerr"
)

var (
	// ErrVariantUnknown is returned when a manifest source has no recognized
	// variant key.
	ErrVariantUnknown = zerr.New("unknown source type, expected one of: git, tar")

	// ErrVariantMultiple is returned when a manifest source has more than one
	// recognized variant key.
	ErrVariantMultiple = zerr.New("multiple source types, expected exactly one of: git, tar")

	// ErrVariantDisabled is returned when a manifest source uses a variant
	// that has been disabled.
	ErrVariantDisabled = zerr.New("source type is disabled")

	// ErrValueNotTable is returned when a manifest source value is not a table.
	ErrValueNotTable = zerr.New("expected source value to be a table")

	// ErrNoSourcesTable is returned when the manifest has no sources table.
	ErrNoSourcesTable = zerr.New("required table 'sources' not found in manifest")

	// ErrReferenceConflict is returned when a git source declares more than
	// one of branch, tag, and rev.
	ErrReferenceConflict = zerr.New("at most one of branch, tag, rev may be given")

	// ErrCacheCorrupt is returned when the cache backing file cannot be decoded.
	ErrCacheCorrupt = zerr.New("cache file is corrupt")

	// ErrCacheExists is returned when creating a fresh store over an existing
	// backing file.
	ErrCacheExists = zerr.New("cache file already exists")

	// ErrManifestNotFound is returned when no manifest could be located.
	ErrManifestNotFound = zerr.New("no manifest found in the current directory or any parent directory")

	// ErrFetchFailed indicates that one or more sources failed to fetch.
	// Successful sources from the same batch are still cached.
	ErrFetchFailed = zerr.New("failed to fetch one or more sources")

	// ErrVerifyFailed indicates that one or more cached artefacts did not
	// match their recorded content stamp.
	ErrVerifyFailed = zerr.New("one or more cached artefacts failed verification")

	// ErrUsage tags argument validation failures so main can map them to a
	// distinct exit code.
	ErrUsage = zerr.New("invalid arguments")
)

// SubprocessError reports a failed external command: the command line that
// was run, its exit status, and the captured standard-error text.
type SubprocessError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("command '%s' exited with status %d", e.Command, e.ExitCode)
}
