// Package cache implements the content-addressed source store backed by a
// flat JSON file inside the cache root.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/forage/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceStore = (*Store)(nil)

// Store implements ports.SourceStore. The in-memory map is the source of
// truth; the backing file is only touched by Save, which writes a temp file
// and renames it over the old one so a failed save never corrupts the store.
type Store struct {
	root string
	path string

	mu      sync.RWMutex
	entries map[domain.Digest]domain.Artefact
}

// Open loads the store in root. If no backing file exists the returned
// store is empty and bound to root; the file is only created on Save.
// Fails if root itself does not exist.
func Open(root string) (*Store, error) {
	s, err := bind(root)
	if err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Create is like Open but fails with domain.ErrCacheExists if a backing
// file is already present, so a fresh store cannot clobber another one.
func Create(root string) (*Store, error) {
	s, err := bind(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil, zerr.With(domain.ErrCacheExists, "path", s.path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.Wrap(err, "failed to stat cache file")
	}
	return s, nil
}

func bind(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, zerr.Wrap(err, "cache root not accessible")
	}
	if !info.IsDir() {
		return nil, zerr.With(zerr.New("cache root is not a directory"), "root", root)
	}
	root = filepath.Clean(root)
	return &Store{
		root:    root,
		path:    filepath.Join(root, domain.CacheFileName),
		entries: make(map[domain.Digest]domain.Artefact),
	}, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read cache file")
	}

	// An existing file must hold a JSON object; a zero-length file is a
	// truncated write, not an empty store.
	var raw map[string]domain.Artefact
	if err := json.Unmarshal(data, &raw); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, err.Error()), "path", s.path)
	}
	for key, artefact := range raw {
		digest, err := domain.ParseDigest(key)
		if err != nil {
			return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "invalid digest key"), "key", key)
		}
		s.entries[digest] = artefact
	}
	return nil
}

// Get returns the artefact recorded for the digest, if any.
func (s *Store) Get(digest domain.Digest) (domain.Artefact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.entries[digest]
	return a, ok
}

// Contains reports whether an artefact is recorded for the digest.
func (s *Store) Contains(digest domain.Digest) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[digest]
	return ok
}

// Insert records the artefact under its own source digest, replacing any
// previous entry.
func (s *Store) Insert(artefact domain.Artefact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[artefact.Digest()] = artefact
}

// Remove deletes the entry for the digest, returning the prior artefact.
func (s *Store) Remove(digest domain.Digest) (domain.Artefact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[digest]
	if ok {
		delete(s.entries, digest)
	}
	return a, ok
}

// Save serializes the full map to the backing file. encoding/json emits
// map keys in sorted order, so the file is stable and diffable across runs.
func (s *Store) Save() error {
	s.mu.RLock()
	raw := make(map[string]domain.Artefact, len(s.entries))
	for digest, artefact := range s.entries {
		raw[digest.Hex()] = artefact
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache")
	}

	tmp, err := os.CreateTemp(s.root, ".forage-cache-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary cache file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to write cache file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to close cache file")
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to set cache file permissions")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to replace cache file")
	}
	return nil
}

// CachedPath derives the artefact directory for a source: the cache root
// joined with the source digest. Pure; safe to call before the fetch.
func (s *Store) CachedPath(source domain.Source) string {
	return filepath.Join(s.root, source.Digest().Hex())
}

// Items returns a snapshot of all entries ordered by digest.
func (s *Store) Items() []domain.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.CacheEntry, 0, len(s.entries))
	for digest, artefact := range s.entries {
		items = append(items, domain.CacheEntry{Digest: digest, Artefact: artefact})
	}
	slices.SortFunc(items, func(a, b domain.CacheEntry) int {
		return a.Digest.Compare(b.Digest)
	})
	return items
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Opener implements ports.StoreOpener using Open.
type Opener struct{}

// Open loads or creates the store bound to root.
func (Opener) Open(root string) (ports.SourceStore, error) {
	return Open(root)
}
