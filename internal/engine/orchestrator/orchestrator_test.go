package orchestrator_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forage/internal/adapters/telemetry"
	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/forage/internal/core/ports/mocks"
	"go.trai.ch/forage/internal/engine/orchestrator"
	"go.uber.org/mock/gomock"
)

func newOrchestrator(ctrl *gomock.Controller, fetcher *mocks.MockFetcher) *orchestrator.Orchestrator {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return orchestrator.New(fetcher, telemetry.NewNoOp(), log)
}

func cachedPathStub(store *mocks.MockSourceStore) {
	store.EXPECT().CachedPath(gomock.Any()).DoAndReturn(func(src domain.Source) string {
		return filepath.Join("/cache", src.Digest().Hex())
	}).AnyTimes()
}

func TestRun_AllCached(t *testing.T) {
	ctrl := gomock.NewController(t)

	src := domain.Git{URL: "https://example.com/a.git"}
	artefact := domain.Artefact{Path: "/cache/x", Source: src, Commit: "abc"}

	store := mocks.NewMockSourceStore(ctrl)
	store.EXPECT().Get(src.Digest()).Return(artefact, true)

	fetcher := mocks.NewMockFetcher(ctrl)
	// No Fetch expectations: a cached source must not hit the network.

	summary, err := newOrchestrator(ctrl, fetcher).Run(t.Context(), domain.Sources{"dep": src}, store, 1)
	require.NoError(t, err)

	assert.Equal(t, []orchestrator.NamedArtefact{{Name: "dep", Artefact: artefact}}, summary.Cached)
	assert.Empty(t, summary.Fetched)
	assert.Empty(t, summary.Failed)
}

func TestRun_FetchesMissing(t *testing.T) {
	ctrl := gomock.NewController(t)

	src := domain.Tar{URL: "https://example.com/a.tar.gz"}
	artefact := domain.Artefact{Path: "/cache/" + src.Digest().Hex(), Source: src, Stamp: "feed"}

	store := mocks.NewMockSourceStore(ctrl)
	store.EXPECT().Get(src.Digest()).Return(domain.Artefact{}, false)
	cachedPathStub(store)
	store.EXPECT().Insert(artefact)

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Fetch(gomock.Any(), src, filepath.Join("/cache", src.Digest().Hex())).
		Return(artefact, nil)

	summary, err := newOrchestrator(ctrl, fetcher).Run(t.Context(), domain.Sources{"dep": src}, store, 1)
	require.NoError(t, err)

	assert.Empty(t, summary.Cached)
	assert.Equal(t, []orchestrator.NamedArtefact{{Name: "dep", Artefact: artefact}}, summary.Fetched)
	assert.Empty(t, summary.Failed)
}

// One failing source neither cancels its siblings nor poisons the store.
func TestRun_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	good := domain.Git{URL: "https://example.com/good.git"}
	bad := domain.Git{URL: "https://example.com/bad.git"}
	artefact := domain.Artefact{Path: "/cache/g", Source: good, Commit: "abc"}
	boom := errors.New("clone failed")

	store := mocks.NewMockSourceStore(ctrl)
	store.EXPECT().Get(gomock.Any()).Return(domain.Artefact{}, false).Times(2)
	cachedPathStub(store)
	store.EXPECT().Insert(artefact)

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), good, gomock.Any()).Return(artefact, nil)
	fetcher.EXPECT().Fetch(gomock.Any(), bad, gomock.Any()).Return(domain.Artefact{}, boom)

	sources := domain.Sources{"good": good, "bad": bad}
	summary, err := newOrchestrator(ctrl, fetcher).Run(t.Context(), sources, store, 2)
	require.NoError(t, err)

	assert.Equal(t, []orchestrator.NamedArtefact{{Name: "good", Artefact: artefact}}, summary.Fetched)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "bad", summary.Failed[0].Name)
	assert.ErrorIs(t, summary.Failed[0].Err, boom)
}

// Two names declaring field-wise equal sources share one fetch.
func TestRun_DeduplicatesByDigest(t *testing.T) {
	ctrl := gomock.NewController(t)

	src := domain.Git{URL: "https://example.com/shared.git"}
	artefact := domain.Artefact{Path: "/cache/s", Source: src, Commit: "abc"}

	store := mocks.NewMockSourceStore(ctrl)
	store.EXPECT().Get(src.Digest()).Return(domain.Artefact{}, false).Times(2)
	cachedPathStub(store)
	store.EXPECT().Insert(artefact)

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), src, gomock.Any()).Return(artefact, nil).Times(1)

	sources := domain.Sources{"first": src, "second": src}
	summary, err := newOrchestrator(ctrl, fetcher).Run(t.Context(), sources, store, 4)
	require.NoError(t, err)

	assert.Equal(t, []orchestrator.NamedArtefact{
		{Name: "first", Artefact: artefact},
		{Name: "second", Artefact: artefact},
	}, summary.Fetched)
}

func TestRun_EmptySources(t *testing.T) {
	ctrl := gomock.NewController(t)

	summary, err := newOrchestrator(ctrl, mocks.NewMockFetcher(ctrl)).
		Run(t.Context(), domain.Sources{}, mocks.NewMockSourceStore(ctrl), 1)
	require.NoError(t, err)

	assert.Empty(t, summary.Cached)
	assert.Empty(t, summary.Fetched)
	assert.Empty(t, summary.Failed)
}
