package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forage/internal/adapters/telemetry"
	"go.trai.ch/forage/internal/app"
	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/forage/internal/core/ports/mocks"
	"go.trai.ch/forage/internal/engine/orchestrator"
	"go.uber.org/mock/gomock"
)

type harness struct {
	app      *app.App
	out      *bytes.Buffer
	loader   *mocks.MockConfigLoader
	opener   *mocks.MockStoreOpener
	store    *mocks.MockSourceStore
	fetcher  *mocks.MockFetcher
	verifier *mocks.MockVerifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	h := &harness{
		out:      &bytes.Buffer{},
		loader:   mocks.NewMockConfigLoader(ctrl),
		opener:   mocks.NewMockStoreOpener(ctrl),
		store:    mocks.NewMockSourceStore(ctrl),
		fetcher:  mocks.NewMockFetcher(ctrl),
		verifier: mocks.NewMockVerifier(ctrl),
	}
	orch := orchestrator.New(h.fetcher, telemetry.NewNoOp(), log)
	h.app = app.New(h.loader, h.opener, orch, h.verifier, log)
	h.app.SetOutput(h.out)
	return h
}

func TestFetch_FetchesAndExports(t *testing.T) {
	h := newHarness(t)

	src := domain.Tar{URL: "https://example.com/pkg.tar.gz"}
	tree := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tree, "file.txt"), []byte("payload"), 0o644))
	artefact := domain.Artefact{Path: tree, Source: src, Stamp: "feed"}

	cacheRoot := filepath.Join(t.TempDir(), "cache")
	outDir := filepath.Join(t.TempDir(), "out")

	h.loader.EXPECT().Load("forage.toml").Return(domain.Sources{"vendor::pkg": src}, nil)
	h.opener.EXPECT().Open(cacheRoot).Return(h.store, nil)
	h.store.EXPECT().Get(src.Digest()).Return(domain.Artefact{}, false)
	h.store.EXPECT().CachedPath(src).Return(filepath.Join(cacheRoot, src.Digest().Hex()))
	h.fetcher.EXPECT().Fetch(gomock.Any(), src, gomock.Any()).Return(artefact, nil)
	h.store.EXPECT().Insert(artefact)
	h.store.EXPECT().Save().Return(nil)

	err := h.app.Fetch(context.Background(), app.FetchOptions{
		Manifest: "forage.toml",
		CacheDir: cacheRoot,
		OutDir:   outDir,
		Jobs:     1,
		Quiet:    true,
	})
	require.NoError(t, err)

	assert.DirExists(t, cacheRoot, "cache root is created on demand")
	assert.Contains(t, h.out.String(), "vendor::pkg: fetched")

	// The name's :: segments become the export subpath.
	data, err := os.ReadFile(filepath.Join(outDir, "vendor", "pkg", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFetch_PartialFailureStillSaves(t *testing.T) {
	h := newHarness(t)

	good := domain.Git{URL: "https://example.com/good.git"}
	bad := domain.Git{URL: "https://example.com/bad.git"}
	artefact := domain.Artefact{Path: t.TempDir(), Source: good, Commit: "abc"}
	cacheRoot := filepath.Join(t.TempDir(), "cache")

	h.loader.EXPECT().Load("forage.toml").Return(domain.Sources{"good": good, "bad": bad}, nil)
	h.opener.EXPECT().Open(cacheRoot).Return(h.store, nil)
	h.store.EXPECT().Get(gomock.Any()).Return(domain.Artefact{}, false).Times(2)
	h.store.EXPECT().CachedPath(gomock.Any()).Return(filepath.Join(cacheRoot, "x")).Times(2)
	h.fetcher.EXPECT().Fetch(gomock.Any(), good, gomock.Any()).Return(artefact, nil)
	h.fetcher.EXPECT().Fetch(gomock.Any(), bad, gomock.Any()).Return(domain.Artefact{}, errors.New("boom"))
	h.store.EXPECT().Insert(artefact)
	h.store.EXPECT().Save().Return(nil)

	err := h.app.Fetch(context.Background(), app.FetchOptions{
		Manifest: "forage.toml",
		CacheDir: cacheRoot,
		Jobs:     2,
		Quiet:    true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Contains(t, h.out.String(), "bad: failed")
}

func TestFetch_DisablesVariants(t *testing.T) {
	h := newHarness(t)

	h.loader.EXPECT().Disable("tar")
	h.loader.EXPECT().Load("forage.toml").Return(nil, domain.ErrVariantDisabled)

	err := h.app.Fetch(context.Background(), app.FetchOptions{
		Manifest: "forage.toml",
		Disabled: []string{"tar"},
	})
	assert.ErrorIs(t, err, domain.ErrVariantDisabled)
}

func TestFetch_AllCachedSkipsNetwork(t *testing.T) {
	h := newHarness(t)

	src := domain.Git{URL: "https://example.com/a.git"}
	artefact := domain.Artefact{Path: "/cache/x", Source: src, Commit: "abc"}
	cacheRoot := filepath.Join(t.TempDir(), "cache")

	h.loader.EXPECT().Load("forage.toml").Return(domain.Sources{"dep": src}, nil)
	h.opener.EXPECT().Open(cacheRoot).Return(h.store, nil)
	h.store.EXPECT().Get(src.Digest()).Return(artefact, true)
	h.store.EXPECT().Save().Return(nil)

	err := h.app.Fetch(context.Background(), app.FetchOptions{
		Manifest: "forage.toml",
		CacheDir: cacheRoot,
		Quiet:    true,
	})
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "dep: cached /cache/x")
}

func TestList_Text(t *testing.T) {
	h := newHarness(t)

	h.loader.EXPECT().Load("forage.toml").Return(domain.Sources{
		"zlib": domain.Tar{URL: "https://example.com/zlib.tar.gz"},
		"lib": domain.Git{
			URL:       "https://example.com/lib.git",
			Reference: &domain.Reference{Kind: domain.RefBranch, Value: "main"},
		},
	}, nil)

	require.NoError(t, h.app.List("forage.toml", "text"))

	out := h.out.String()
	assert.Contains(t, out, "zlib\thttps://example.com/zlib.tar.gz")
	assert.Contains(t, out, "lib\thttps://example.com/lib.git (branch: main)")
}

func TestList_JSON(t *testing.T) {
	h := newHarness(t)

	h.loader.EXPECT().Load("forage.toml").Return(domain.Sources{
		"zlib": domain.Tar{URL: "https://example.com/zlib.tar.gz"},
	}, nil)

	require.NoError(t, h.app.List("forage.toml", "json"))
	assert.JSONEq(t, `{"zlib": {"tar": "https://example.com/zlib.tar.gz"}}`, h.out.String())
}

func TestList_UnknownFormat(t *testing.T) {
	h := newHarness(t)
	h.loader.EXPECT().Load("forage.toml").Return(domain.Sources{}, nil)

	err := h.app.List("forage.toml", "xml")
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestCached_MissingRootIsEmpty(t *testing.T) {
	h := newHarness(t)
	// No opener expectations: a missing root never opens a store.

	err := h.app.Cached(filepath.Join(t.TempDir(), "never-created"), "text")
	require.NoError(t, err)
	assert.Empty(t, h.out.String())
}

func TestCached_ListsEntries(t *testing.T) {
	h := newHarness(t)

	src := domain.Git{URL: "https://example.com/a.git"}
	root := t.TempDir()

	h.opener.EXPECT().Open(root).Return(h.store, nil)
	h.store.EXPECT().Len().Return(1)
	h.store.EXPECT().Items().Return([]domain.CacheEntry{{
		Digest:   src.Digest(),
		Artefact: domain.Artefact{Path: "/cache/x", Source: src, Commit: "abc"},
	}})

	require.NoError(t, h.app.Cached(root, "text"))

	out := h.out.String()
	assert.Contains(t, out, src.Digest().Hex())
	assert.Contains(t, out, "https://example.com/a.git")
	assert.Contains(t, out, "/cache/x")
}

func TestVerify_ReportsMismatch(t *testing.T) {
	h := newHarness(t)

	okSrc := domain.Git{URL: "https://example.com/ok.git"}
	badSrc := domain.Git{URL: "https://example.com/bad.git"}
	goneSrc := domain.Git{URL: "https://example.com/gone.git"}
	root := t.TempDir()
	okDir := t.TempDir()
	badDir := t.TempDir()

	h.opener.EXPECT().Open(root).Return(h.store, nil)
	h.store.EXPECT().Items().Return([]domain.CacheEntry{
		{Digest: okSrc.Digest(), Artefact: domain.Artefact{Path: okDir, Source: okSrc, Stamp: "aaaa"}},
		{Digest: badSrc.Digest(), Artefact: domain.Artefact{Path: badDir, Source: badSrc, Stamp: "bbbb"}},
		{Digest: goneSrc.Digest(), Artefact: domain.Artefact{Path: filepath.Join(root, "gone"), Source: goneSrc, Stamp: "cccc"}},
	})
	h.verifier.EXPECT().Stamp(okDir).Return("aaaa", nil)
	h.verifier.EXPECT().Stamp(badDir).Return("ffff", nil)

	err := h.app.Verify(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVerifyFailed)

	out := h.out.String()
	assert.Contains(t, out, okSrc.Digest().Hex()+"\tok")
	assert.Contains(t, out, badSrc.Digest().Hex()+"\tmismatch")
	assert.Contains(t, out, goneSrc.Digest().Hex()+"\tmissing")
}

func TestVerify_CleanCache(t *testing.T) {
	h := newHarness(t)

	src := domain.Git{URL: "https://example.com/a.git"}
	root := t.TempDir()
	dir := t.TempDir()

	h.opener.EXPECT().Open(root).Return(h.store, nil)
	h.store.EXPECT().Items().Return([]domain.CacheEntry{
		{Digest: src.Digest(), Artefact: domain.Artefact{Path: dir, Source: src, Stamp: "aaaa"}},
	})
	h.verifier.EXPECT().Stamp(dir).Return("aaaa", nil)

	assert.NoError(t, h.app.Verify(root))
}
