// Package domain contains the core types for declaring and caching sources.
package domain

import (
	"encoding/json"
	"fmt"

	"go.trai.ch/zerr"
)

// RefKind distinguishes the three ways a git source can pin what to clone.
type RefKind string

const (
	// RefBranch selects a branch by name.
	RefBranch RefKind = "branch"
	// RefTag selects a tag by name.
	RefTag RefKind = "tag"
	// RefRev selects a specific commit SHA.
	RefRev RefKind = "rev"
)

// Reference pins a git source to a branch, tag, or revision.
// The kind is identity-significant: a branch and a tag with the same
// name are distinct cache subjects.
type Reference struct {
	Kind  RefKind
	Value string
}

// Source is a declarative description of an external origin to fetch.
// It is a closed set: Git and Tar are the only implementations.
//
// A Source's identity is a pure function of its field values and is
// independent of the name it is declared under.
type Source interface {
	// Upstream returns the remote URL of the source.
	Upstream() string
	// Digest returns the content identifier derived from the source's
	// canonical encoding.
	Digest() Digest
	// Variant returns the manifest key identifying the source type.
	Variant() string

	fmt.Stringer
	json.Marshaler

	// appendCanonical appends the variant-tagged canonical encoding of the
	// source to b. Unexported so the set of variants stays closed.
	appendCanonical(b []byte) []byte
}

// Sources is a named source table as declared in a manifest. Names are
// "::"-separated path-like segments chosen by the user; they are not part
// of any source's identity.
type Sources map[string]Source

// Git declares a remote git repository to be shallow-cloned.
type Git struct {
	URL       string
	Reference *Reference
	Recursive bool
}

// Upstream returns the clone URL.
func (g Git) Upstream() string { return g.URL }

// Variant returns "git".
func (g Git) Variant() string { return "git" }

// Digest returns the identity of this git source.
func (g Git) Digest() Digest { return digestOf(g.appendCanonical(nil)) }

// BranchName returns the branch or tag name to clone, if any.
func (g Git) BranchName() (string, bool) {
	if g.Reference != nil && (g.Reference.Kind == RefBranch || g.Reference.Kind == RefTag) {
		return g.Reference.Value, true
	}
	return "", false
}

// CommitSHA returns the pinned revision, if any.
func (g Git) CommitSHA() (string, bool) {
	if g.Reference != nil && g.Reference.Kind == RefRev {
		return g.Reference.Value, true
	}
	return "", false
}

func (g Git) String() string {
	s := g.URL
	if g.Reference != nil {
		s += fmt.Sprintf(" (%s: %s)", g.Reference.Kind, g.Reference.Value)
	}
	if g.Recursive {
		s += " [recursive]"
	}
	return s
}

// The canonical encoding tags the variant, separates fields with NUL, and
// encodes the presence of the optional reference explicitly, so that an
// absent reference never digests equal to any named one.
func (g Git) appendCanonical(b []byte) []byte {
	b = append(b, "git"...)
	b = append(b, 0)
	b = append(b, g.URL...)
	b = append(b, 0)
	if g.Reference != nil {
		b = append(b, 1)
		b = append(b, g.Reference.Kind...)
		b = append(b, 0)
		b = append(b, g.Reference.Value...)
	} else {
		b = append(b, 0)
	}
	b = append(b, 0)
	if g.Recursive {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return b
}

// MarshalJSON renders the manifest wire form, e.g.
// {"git": URL, "branch": NAME, "recursive": true}.
func (g Git) MarshalJSON() ([]byte, error) {
	dto := sourceJSON{Git: g.URL, Recursive: g.Recursive}
	if g.Reference != nil {
		switch g.Reference.Kind {
		case RefBranch:
			dto.Branch = g.Reference.Value
		case RefTag:
			dto.Tag = g.Reference.Value
		case RefRev:
			dto.Rev = g.Reference.Value
		}
	}
	return json.Marshal(dto)
}

// Tar declares a remote gzipped tar archive to be downloaded and extracted.
type Tar struct {
	URL string
}

// Upstream returns the archive URL.
func (t Tar) Upstream() string { return t.URL }

// Variant returns "tar".
func (t Tar) Variant() string { return "tar" }

// Digest returns the identity of this tar source.
func (t Tar) Digest() Digest { return digestOf(t.appendCanonical(nil)) }

func (t Tar) String() string { return t.URL }

func (t Tar) appendCanonical(b []byte) []byte {
	b = append(b, "tar"...)
	b = append(b, 0)
	b = append(b, t.URL...)
	b = append(b, 0)
	return b
}

// MarshalJSON renders the manifest wire form {"tar": URL}.
func (t Tar) MarshalJSON() ([]byte, error) {
	return json.Marshal(sourceJSON{Tar: t.URL})
}

// sourceJSON is the flat wire form shared by both variants.
type sourceJSON struct {
	Git       string `json:"git,omitempty"`
	Tar       string `json:"tar,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Rev       string `json:"rev,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
}

// UnmarshalSource decodes the wire form produced by a Source's MarshalJSON.
func UnmarshalSource(data []byte) (Source, error) {
	var dto sourceJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, zerr.Wrap(err, "failed to decode source")
	}
	switch {
	case dto.Git != "" && dto.Tar != "":
		return nil, zerr.New("source declares both git and tar")
	case dto.Git != "":
		g := Git{URL: dto.Git, Recursive: dto.Recursive}
		ref, err := singleReference(dto.Branch, dto.Tag, dto.Rev)
		if err != nil {
			return nil, err
		}
		g.Reference = ref
		return g, nil
	case dto.Tar != "":
		return Tar{URL: dto.Tar}, nil
	default:
		return nil, zerr.New("source declares neither git nor tar")
	}
}

// singleReference builds a Reference from the branch/tag/rev slots,
// requiring at most one to be set.
func singleReference(branch, tag, rev string) (*Reference, error) {
	var ref *Reference
	for _, cand := range []Reference{
		{Kind: RefBranch, Value: branch},
		{Kind: RefTag, Value: tag},
		{Kind: RefRev, Value: rev},
	} {
		if cand.Value == "" {
			continue
		}
		if ref != nil {
			return nil, zerr.Wrap(ErrReferenceConflict, "multiple git references")
		}
		c := cand
		ref = &c
	}
	return ref, nil
}
