// Package fetch materializes declared sources into local directories.
package fetch

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/forage/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fetcher = (*Fetcher)(nil)

// Fetcher implements ports.Fetcher by dispatching on the source variant.
type Fetcher struct {
	logger  ports.Logger
	stamper ports.Verifier
}

// NewFetcher creates a Fetcher.
func NewFetcher(logger ports.Logger, stamper ports.Verifier) *Fetcher {
	return &Fetcher{logger: logger, stamper: stamper}
}

// Fetch materializes the source into dir. The target is recreated from
// scratch on every call so a half-fetched tree from an earlier run never
// survives. On failure the target is removed again, best effort, so the
// cache directory only ever holds complete artefacts.
func (f *Fetcher) Fetch(ctx context.Context, source domain.Source, dir string) (domain.Artefact, error) {
	if err := os.RemoveAll(dir); err != nil {
		return domain.Artefact{}, zerr.With(zerr.Wrap(err, "failed to clear target directory"), "dir", dir)
	}
	if err := os.MkdirAll(filepath.Dir(dir), domain.DirPerm); err != nil {
		return domain.Artefact{}, zerr.With(zerr.Wrap(err, "failed to create cache directory"), "dir", filepath.Dir(dir))
	}

	artefact := domain.Artefact{Path: dir, Source: source}

	var err error
	switch src := source.(type) {
	case domain.Git:
		artefact.Commit, err = f.fetchGit(ctx, src, dir)
	case domain.Tar:
		err = f.fetchTar(ctx, src, dir)
	default:
		err = zerr.With(zerr.New("unsupported source variant"), "variant", source.Variant())
	}
	if err != nil {
		f.discard(dir)
		return domain.Artefact{}, err
	}

	artefact.Stamp, err = f.stamper.Stamp(dir)
	if err != nil {
		f.discard(dir)
		return domain.Artefact{}, zerr.Wrap(err, "failed to stamp fetched tree")
	}
	return artefact, nil
}

func (f *Fetcher) discard(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		f.logger.Warn("failed to remove incomplete fetch target: " + dir)
	}
}
