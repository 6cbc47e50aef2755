package ports

import "go.trai.ch/forage/internal/core/domain"

// SourceStore is the persistent digest-to-artefact mapping. Lookups and
// mutations are in-memory only; Save is the single operation that touches
// the backing file.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type SourceStore interface {
	// Get returns the artefact recorded for the digest, if any.
	Get(digest domain.Digest) (domain.Artefact, bool)

	// Contains reports whether an artefact is recorded for the digest.
	Contains(digest domain.Digest) bool

	// Insert records the artefact under its own source digest,
	// overwriting any previous entry (last-write-wins).
	Insert(artefact domain.Artefact)

	// Remove deletes the entry for the digest, returning the prior
	// artefact if one was present.
	Remove(digest domain.Digest) (domain.Artefact, bool)

	// Save serializes the full map to the backing file. A failed save
	// never leaves a partially written file that loads as valid.
	Save() error

	// CachedPath derives the on-disk directory for the source's artefact:
	// the store root joined with the source digest. It is pure and may be
	// called before the artefact exists.
	CachedPath(source domain.Source) string

	// Items returns a snapshot of all entries ordered by digest.
	Items() []domain.CacheEntry

	// Len returns the number of recorded entries.
	Len() int

	// Root returns the cache root directory.
	Root() string
}

// StoreOpener constructs stores bound to a cache root.
type StoreOpener interface {
	// Open loads the store in root, or returns an empty store bound to
	// root when no backing file exists. It fails if root does not exist
	// and never creates the backing file.
	Open(root string) (SourceStore, error)
}
