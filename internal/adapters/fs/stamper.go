// Package fs provides the file system stamper for artefact trees.
package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forage/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Verifier = (*Stamper)(nil)

// Stamper computes deterministic content stamps over directory trees.
type Stamper struct{}

// NewStamper creates a new Stamper.
func NewStamper() *Stamper {
	return &Stamper{}
}

// Stamp hashes every file and symlink under dir in sorted relative-path
// order. Git metadata is excluded: a shallow clone's .git directory is not
// content and is not byte-stable across fetches of the same commit.
func (s *Stamper) Stamp(dir string) (string, error) {
	entries, err := collect(dir)
	if err != nil {
		return "", err
	}
	sort.Strings(entries)

	hasher := xxhash.New()
	for _, rel := range entries {
		_, _ = hasher.WriteString(rel)
		_, _ = hasher.Write([]byte{0})
		if err := hashEntry(filepath.Join(dir, rel), hasher); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// collect returns the relative paths of all files and symlinks under root,
// skipping .git directories.
func collect(root string) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, rel)
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to walk tree"), "dir", root)
	}
	return entries, nil
}

func hashEntry(path string, hasher *xxhash.Digest) error {
	info, err := os.Lstat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat entry"), "path", path)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read symlink"), "path", path)
		}
		_, _ = hasher.WriteString(target)
		_, _ = hasher.Write([]byte{0})
		return nil
	}

	content, err := hashFileContent(path)
	if err != nil {
		return err
	}
	return binary.Write(hasher, binary.LittleEndian, content)
}

// hashFileContent computes the XXHash of a single file's content.
func hashFileContent(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from walking the tree
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return hasher.Sum64(), nil
}
