// Package orchestrator coordinates fetching the sources a cache is missing.
package orchestrator

import (
	"context"
	"maps"
	"runtime"
	"slices"
	"strings"

	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/forage/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// NamedArtefact pairs a manifest name with the artefact satisfying it.
type NamedArtefact struct {
	Name     string
	Artefact domain.Artefact
}

// NamedError pairs a manifest name with the error that failed its fetch.
type NamedError struct {
	Name string
	Err  error
}

// Summary reports the outcome of one orchestration run, ordered by name.
type Summary struct {
	Cached  []NamedArtefact
	Fetched []NamedArtefact
	Failed  []NamedError
}

// Orchestrator partitions a source table against a store, fetches what is
// missing, and merges the results back in.
type Orchestrator struct {
	fetcher   ports.Fetcher
	telemetry ports.Telemetry
	logger    ports.Logger
}

// New creates an Orchestrator.
func New(fetcher ports.Fetcher, telemetry ports.Telemetry, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		telemetry: telemetry,
		logger:    logger,
	}
}

// WithTelemetry returns a copy of the orchestrator recording progress
// through t, e.g. a noop recorder for quiet runs.
func (o *Orchestrator) WithTelemetry(t ports.Telemetry) *Orchestrator {
	return &Orchestrator{
		fetcher:   o.fetcher,
		telemetry: t,
		logger:    o.logger,
	}
}

// job is one pending fetch. Several names can share it when their sources
// digest equal; the fetch runs once and satisfies them all. The worker that
// runs the fetch is the only writer of artefact and err.
type job struct {
	source   domain.Source
	names    []string
	artefact domain.Artefact
	err      error
}

// Run fetches every source the store does not already contain.
//
// Workers never touch the store: each writes its own job slot, and the
// merge happens on the calling goroutine strictly after all workers have
// finished. A failed fetch never blocks or cancels its siblings, and the
// caller decides whether and when to persist the store. parallelism <= 0
// selects one worker per CPU; 1 fetches serially.
func (o *Orchestrator) Run(ctx context.Context, sources domain.Sources, store ports.SourceStore, parallelism int) (*Summary, error) {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	summary := &Summary{}
	byDigest := make(map[domain.Digest]*job)
	var jobs []*job

	for _, name := range slices.Sorted(maps.Keys(sources)) {
		source := sources[name]
		digest := source.Digest()

		if artefact, ok := store.Get(digest); ok {
			o.telemetry.Record(name).Cached()
			summary.Cached = append(summary.Cached, NamedArtefact{Name: name, Artefact: artefact})
			continue
		}

		if pending, ok := byDigest[digest]; ok {
			pending.names = append(pending.names, name)
			continue
		}
		j := &job{source: source, names: []string{name}}
		byDigest[digest] = j
		jobs = append(jobs, j)
	}

	var g errgroup.Group
	g.SetLimit(parallelism)
	for _, j := range jobs {
		g.Go(func() error {
			vertex := o.telemetry.Record(strings.Join(j.names, ", "))
			j.artefact, j.err = o.fetcher.Fetch(ctx, j.source, store.CachedPath(j.source))
			vertex.Complete(j.err)
			return nil
		})
	}
	_ = g.Wait()

	for _, j := range jobs {
		if j.err != nil {
			o.logger.Error(j.err)
			for _, name := range j.names {
				summary.Failed = append(summary.Failed, NamedError{Name: name, Err: j.err})
			}
			continue
		}
		store.Insert(j.artefact)
		for _, name := range j.names {
			summary.Fetched = append(summary.Fetched, NamedArtefact{Name: name, Artefact: j.artefact})
		}
	}

	slices.SortFunc(summary.Fetched, func(a, b NamedArtefact) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(summary.Failed, func(a, b NamedError) int { return strings.Compare(a.Name, b.Name) })

	return summary, ctx.Err()
}
