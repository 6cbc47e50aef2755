// Package app implements the application layer for forage.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/forage/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/forage/internal/core/ports"
	"go.trai.ch/forage/internal/engine/orchestrator"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	loader   ports.ConfigLoader
	opener   ports.StoreOpener
	orch     *orchestrator.Orchestrator
	verifier ports.Verifier
	logger   ports.Logger
	out      io.Writer
}

// New creates a new App instance writing reports to stdout.
func New(
	loader ports.ConfigLoader,
	opener ports.StoreOpener,
	orch *orchestrator.Orchestrator,
	verifier ports.Verifier,
	logger ports.Logger,
) *App {
	return &App{
		loader:   loader,
		opener:   opener,
		orch:     orch,
		verifier: verifier,
		logger:   logger,
		out:      os.Stdout,
	}
}

// SetOutput redirects the report writer. Used for testing.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// FetchOptions configures a fetch run.
type FetchOptions struct {
	// Manifest is the manifest path; empty means discover from the
	// working directory upward.
	Manifest string
	// CacheDir overrides the default cache root.
	CacheDir string
	// OutDir, when set, receives a copy of every artefact under its
	// name-derived subpath.
	OutDir string
	// Jobs bounds concurrent fetches; <= 0 means one per CPU.
	Jobs int
	// Disabled lists source variants that must not appear in the manifest.
	Disabled []string
	// Quiet suppresses progress recording.
	Quiet bool
}

// Fetch loads the manifest, fetches every source the cache is missing, and
// persists the updated cache. Sources that fetched successfully are saved
// even when others failed; a partial failure returns domain.ErrFetchFailed
// after the save.
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	for _, variant := range opts.Disabled {
		a.loader.Disable(variant)
	}

	sources, err := a.loadSources(opts.Manifest)
	if err != nil {
		return err
	}

	root, err := resolveCacheRoot(opts.CacheDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create cache root"), "dir", root)
	}
	store, err := a.opener.Open(root)
	if err != nil {
		return err
	}

	orch := a.orch
	if opts.Quiet {
		orch = orch.WithTelemetry(telemetry.NewNoOp())
	}
	summary, runErr := orch.Run(ctx, sources, store, opts.Jobs)

	// Persist what succeeded before reporting anything else.
	if err := store.Save(); err != nil {
		return err
	}
	if runErr != nil {
		return zerr.Wrap(runErr, "fetch interrupted")
	}

	a.report(summary)

	if opts.OutDir != "" {
		satisfied := append(slices.Clone(summary.Cached), summary.Fetched...)
		if err := exportArtefacts(opts.OutDir, satisfied); err != nil {
			return err
		}
	}

	if len(summary.Failed) > 0 {
		return zerr.With(domain.ErrFetchFailed, "failed", len(summary.Failed))
	}
	return nil
}

func (a *App) report(summary *orchestrator.Summary) {
	for _, item := range summary.Cached {
		fmt.Fprintf(a.out, "%s: cached %s\n", item.Name, item.Artefact.Path)
	}
	for _, item := range summary.Fetched {
		fmt.Fprintf(a.out, "%s: fetched %s\n", item.Name, item.Artefact.Path)
	}
	for _, item := range summary.Failed {
		fmt.Fprintf(a.out, "%s: failed: %v\n", item.Name, item.Err)
	}
}

// exportArtefacts copies each artefact into outDir under the subpath
// derived from its "::"-separated name. An existing copy is replaced
// wholesale so the export always mirrors the cache.
func exportArtefacts(outDir string, items []orchestrator.NamedArtefact) error {
	for _, item := range items {
		segments := strings.Split(item.Name, "::")
		dst := filepath.Join(append([]string{outDir}, segments...)...)

		if err := os.RemoveAll(dst); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to clear export target"), "dir", dst)
		}
		if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create export directory"), "dir", filepath.Dir(dst))
		}
		if err := os.CopyFS(dst, os.DirFS(item.Artefact.Path)); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to export artefact"), "name", item.Name)
		}
	}
	return nil
}

// List prints the declared sources without fetching anything.
func (a *App) List(manifest, format string) error {
	sources, err := a.loadSources(manifest)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return zerr.Wrap(err, "failed to encode sources")
		}
		fmt.Fprintln(a.out, string(data))
	case "", "text":
		for _, name := range slices.Sorted(maps.Keys(sources)) {
			fmt.Fprintf(a.out, "%s\t%s\n", name, sources[name])
		}
	default:
		return zerr.With(zerr.Wrap(domain.ErrUsage, "unknown format"), "format", format)
	}
	return nil
}

// cachedRow is the listing record for one cache entry.
type cachedRow struct {
	Digest   string `json:"digest"`
	Path     string `json:"path"`
	Upstream string `json:"upstream"`
	Commit   string `json:"commit,omitempty"`
	Stamp    string `json:"stamp,omitempty"`
}

// Cached prints the contents of the cache. A cache root that does not
// exist yet is an empty cache, not an error.
func (a *App) Cached(cacheDir, format string) error {
	store, err := a.openExisting(cacheDir)
	if err != nil || store == nil {
		return err
	}

	rows := make([]cachedRow, 0, store.Len())
	for _, entry := range store.Items() {
		rows = append(rows, cachedRow{
			Digest:   entry.Digest.Hex(),
			Path:     entry.Artefact.Path,
			Upstream: entry.Artefact.Source.Upstream(),
			Commit:   entry.Artefact.Commit,
			Stamp:    entry.Artefact.Stamp,
		})
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return zerr.Wrap(err, "failed to encode cache entries")
		}
		fmt.Fprintln(a.out, string(data))
	case "", "text":
		for _, row := range rows {
			fmt.Fprintf(a.out, "%s\t%s\t%s\n", row.Digest, row.Upstream, row.Path)
		}
	default:
		return zerr.With(zerr.Wrap(domain.ErrUsage, "unknown format"), "format", format)
	}
	return nil
}

// Verify recomputes the content stamp of every cached artefact and reports
// entries whose tree is missing or no longer matches.
func (a *App) Verify(cacheDir string) error {
	store, err := a.openExisting(cacheDir)
	if err != nil || store == nil {
		return err
	}

	failures := 0
	for _, entry := range store.Items() {
		switch status := a.verifyEntry(entry); status {
		case "ok":
			fmt.Fprintf(a.out, "%s\tok\n", entry.Digest.Hex())
		default:
			failures++
			fmt.Fprintf(a.out, "%s\t%s\n", entry.Digest.Hex(), status)
		}
	}

	if failures > 0 {
		return zerr.With(domain.ErrVerifyFailed, "failures", failures)
	}
	return nil
}

func (a *App) verifyEntry(entry domain.CacheEntry) string {
	if _, err := os.Stat(entry.Artefact.Path); err != nil {
		return "missing"
	}
	if entry.Artefact.Stamp == "" {
		a.logger.Warn("no stamp recorded for " + entry.Digest.Hex())
		return "ok"
	}
	stamp, err := a.verifier.Stamp(entry.Artefact.Path)
	if err != nil {
		return "unreadable: " + err.Error()
	}
	if stamp != entry.Artefact.Stamp {
		return "mismatch"
	}
	return "ok"
}

// loadSources resolves the manifest path (discovering one when none is
// given) and loads it.
func (a *App) loadSources(manifest string) (domain.Sources, error) {
	if manifest == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, zerr.Wrap(err, "failed to determine working directory")
		}
		manifest, err = a.loader.Discover(wd)
		if err != nil {
			return nil, err
		}
	}
	return a.loader.Load(manifest)
}

// openExisting opens the store in the resolved cache root, or returns
// (nil, nil) when the root does not exist.
func (a *App) openExisting(cacheDir string) (ports.SourceStore, error) {
	root, err := resolveCacheRoot(cacheDir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return a.opener.Open(root)
}

func resolveCacheRoot(cacheDir string) (string, error) {
	if cacheDir != "" {
		return cacheDir, nil
	}
	return domain.DefaultCachePath()
}
