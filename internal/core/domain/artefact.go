package domain

import (
	"encoding/json"

	"go.trai.ch/zerr"
)

// Artefact describes the materialized output of a fetch: where it lives on
// disk and the source definition it came from. Artefacts are immutable once
// recorded; re-inserting for the same digest replaces the old descriptor.
type Artefact struct {
	// Path is the local directory holding the fetched content.
	Path string
	// Source is the definition that was fetched.
	Source Source
	// Commit is the resolved HEAD commit for git fetches.
	Commit string
	// Stamp is a content stamp of the artefact tree, recorded at fetch
	// time and checked by verification.
	Stamp string
}

// Digest returns the identity of the artefact's source.
func (a Artefact) Digest() Digest { return a.Source.Digest() }

type artefactJSON struct {
	Path   string          `json:"path"`
	Source json.RawMessage `json:"source"`
	Commit string          `json:"commit,omitempty"`
	Stamp  string          `json:"stamp,omitempty"`
}

// MarshalJSON renders the cache-file record for this artefact.
func (a Artefact) MarshalJSON() ([]byte, error) {
	src, err := json.Marshal(a.Source)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode artefact source")
	}
	return json.Marshal(artefactJSON{
		Path:   a.Path,
		Source: src,
		Commit: a.Commit,
		Stamp:  a.Stamp,
	})
}

// UnmarshalJSON decodes a cache-file record.
func (a *Artefact) UnmarshalJSON(data []byte) error {
	var dto artefactJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return zerr.Wrap(err, "failed to decode artefact")
	}
	src, err := UnmarshalSource(dto.Source)
	if err != nil {
		return err
	}
	a.Path = dto.Path
	a.Source = src
	a.Commit = dto.Commit
	a.Stamp = dto.Stamp
	return nil
}

// CacheEntry pairs a digest with its recorded artefact, for listings.
type CacheEntry struct {
	Digest   Digest
	Artefact Artefact
}
