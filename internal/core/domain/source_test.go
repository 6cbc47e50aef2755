package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forage/internal/core/domain"
)

func TestSource_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source domain.Source
	}{
		{"bare git", domain.Git{URL: "git@github.com:foo/bar.git"}},
		{"git branch", domain.Git{URL: "https://example.com/r.git", Reference: ref(domain.RefBranch, "main")}},
		{"git tag recursive", domain.Git{URL: "https://example.com/r.git", Reference: ref(domain.RefTag, "v1.0"), Recursive: true}},
		{"git rev", domain.Git{URL: "https://example.com/r.git", Reference: ref(domain.RefRev, "abcd1234")}},
		{"tar", domain.Tar{URL: "https://example.com/data.tar.gz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.source)
			require.NoError(t, err)

			decoded, err := domain.UnmarshalSource(data)
			require.NoError(t, err)
			assert.Equal(t, tt.source, decoded)
			assert.Equal(t, tt.source.Digest(), decoded.Digest())
		})
	}
}

func TestSource_WireForm(t *testing.T) {
	src := domain.Git{
		URL:       "git@github.com:foo/bar.git",
		Reference: ref(domain.RefRev, "abcd1234"),
	}

	data, err := json.Marshal(src)
	require.NoError(t, err)
	assert.JSONEq(t, `{"git": "git@github.com:foo/bar.git", "rev": "abcd1234"}`, string(data))
}

func TestUnmarshalSource_Invalid(t *testing.T) {
	_, err := domain.UnmarshalSource([]byte(`{"git": "a", "tar": "b"}`))
	assert.Error(t, err)

	_, err = domain.UnmarshalSource([]byte(`{"recursive": true}`))
	assert.Error(t, err)

	_, err = domain.UnmarshalSource([]byte(`{"git": "a", "branch": "x", "tag": "y"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReferenceConflict))
}

func TestGit_ReferenceHelpers(t *testing.T) {
	branch := domain.Git{URL: "u", Reference: ref(domain.RefBranch, "main")}
	name, ok := branch.BranchName()
	assert.True(t, ok)
	assert.Equal(t, "main", name)
	_, ok = branch.CommitSHA()
	assert.False(t, ok)

	tag := domain.Git{URL: "u", Reference: ref(domain.RefTag, "v2")}
	name, ok = tag.BranchName()
	assert.True(t, ok)
	assert.Equal(t, "v2", name)

	rev := domain.Git{URL: "u", Reference: ref(domain.RefRev, "abc")}
	sha, ok := rev.CommitSHA()
	assert.True(t, ok)
	assert.Equal(t, "abc", sha)
	_, ok = rev.BranchName()
	assert.False(t, ok)

	bare := domain.Git{URL: "u"}
	_, ok = bare.BranchName()
	assert.False(t, ok)
	_, ok = bare.CommitSHA()
	assert.False(t, ok)
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "https://example.com/r.git (branch: main) [recursive]",
		domain.Git{URL: "https://example.com/r.git", Reference: ref(domain.RefBranch, "main"), Recursive: true}.String())
	assert.Equal(t, "https://example.com/d.tar.gz", domain.Tar{URL: "https://example.com/d.tar.gz"}.String())
}

func TestArtefact_JSONRoundTrip(t *testing.T) {
	a := domain.Artefact{
		Path:   "/cache/abc",
		Source: domain.Git{URL: "https://example.com/r.git", Reference: ref(domain.RefRev, "abcd")},
		Commit: "abcd1234",
		Stamp:  "00ff00ff00ff00ff",
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded domain.Artefact
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, a, decoded)
	assert.Equal(t, a.Digest(), decoded.Digest())
}
