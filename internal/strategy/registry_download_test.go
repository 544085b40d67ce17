// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/internal/download"
	"github.com/pdiddy/dataset-engine/internal/history"
	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/strategy"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// TestStandardRegistry_DownloadMany drives the standard chains end to end:
// repository APIs, a direct file and an unreachable host, then a second run
// over the same root and history.
func TestStandardRegistry_DownloadMany(t *testing.T) {
	ts := strategy.NewRepositoryServer(t)
	defer ts.Close()
	defer strategy.OverrideBaseURLs(ts.URL)()

	gone := httptest.NewServer(nil)
	goneURL := gone.URL + "/data/missing.csv"
	gone.Close()

	store, err := history.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	root := t.TempDir()
	reg := strategy.NewRegistry(httputil.NewTestFetchContext(ts.Client()), nil, types.BrowserConfig{})
	opts := download.Options{
		Root:        root,
		Workers:     2,
		ItemTimeout: 30 * time.Second,
		Retry:       httputil.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
	}

	refs := []types.DatasetReference{
		{Name: "Neuron traces", DOI: "10.6084/m9.figshare.7654321", Repository: types.RepoFigshare},
		{Name: "Layout", DOI: "10.5061/dryad.layout", Repository: types.RepoDryad},
		{Name: "Raw traces", URL: ts.URL + "/files/traces.csv", Repository: types.RepoWebsite},
		{Name: "Lost table", URL: goneURL, Repository: types.RepoWebsite},
	}

	batch := download.New(reg, store, opts).DownloadMany(context.Background(), refs, download.Filters{})
	require.Len(t, batch.Details, 4)
	assert.Equal(t, 3, batch.Success)
	assert.Equal(t, 0, batch.Skipped)
	assert.Equal(t, 1, batch.Failed)

	figshare, dryad, direct, lost := batch.Details[0], batch.Details[1], batch.Details[2], batch.Details[3]

	assert.Equal(t, types.StatusSuccess, figshare.Status, figshare.Error)
	assert.Equal(t, strategy.NameFigshareAPI, figshare.Strategy)
	assert.Equal(t, filepath.Join(root, download.DirName(refs[0])), figshare.Path)
	assert.FileExists(t, filepath.Join(figshare.Path, "traces.csv"))
	assert.FileExists(t, filepath.Join(figshare.Path, strategy.MetadataFile))

	assert.Equal(t, types.StatusSuccess, dryad.Status, dryad.Error)
	assert.Equal(t, strategy.NameDryadAPI, dryad.Strategy)
	assert.FileExists(t, filepath.Join(dryad.Path, "raw", "data.csv"))
	assert.FileExists(t, filepath.Join(dryad.Path, "processed", "data.csv"))

	assert.Equal(t, types.StatusSuccess, direct.Status, direct.Error)
	assert.Equal(t, strategy.NameDirectFile, direct.Strategy)
	require.Len(t, direct.Files, 1)
	assert.Equal(t, "traces.csv", direct.Files[0].Name)
	assert.Equal(t, int64(len("t,v\n0,1\n")), direct.TotalSize)

	assert.Equal(t, types.StatusFailed, lost.Status)
	assert.NotEmpty(t, lost.Error)
	assert.Equal(t, []string{strategy.NameDirectFile, strategy.NameArchive}, attemptNames(lost.Attempts))
	for _, a := range lost.Attempts {
		assert.Equal(t, 2, a.Tries, "%s should be retried once", a.Strategy)
	}
	assert.NoDirExists(t, filepath.Join(root, download.DirName(refs[3])))

	recs, err := store.List(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		assert.Equal(t, types.HistorySuccess, r.Status)
		keys = append(keys, r.Key)
	}
	sort.Strings(keys)
	want := []string{refs[0].DOI, refs[1].DOI, refs[2].URL}
	sort.Strings(want)
	assert.Equal(t, want, keys)

	rec, err := store.Get(context.Background(), refs[0].DOI)
	require.NoError(t, err)
	assert.Equal(t, strategy.NameFigshareAPI, rec.Strategy)
	assert.Equal(t, figshare.Path, rec.Path)
	assert.Equal(t, figshare.TotalSize, rec.TotalSize)

	// A fresh dispatcher over the same root and history skips the successes
	// and tries the failure again.
	rerun := download.New(reg, store, opts).DownloadMany(context.Background(), refs, download.Filters{})
	require.Len(t, rerun.Details, 4)
	for i := 0; i < 3; i++ {
		d := rerun.Details[i]
		assert.Equal(t, types.StatusSkipped, d.Status, d.Reference.Name)
		assert.Empty(t, d.Attempts, d.Reference.Name)
		assert.Equal(t, batch.Details[i].Path, d.Path)
	}
	assert.Equal(t, types.StatusFailed, rerun.Details[3].Status)
	assert.NotEmpty(t, rerun.Details[3].Attempts)
	assert.Equal(t, 3, rerun.Skipped)
	assert.Equal(t, 1, rerun.Failed)
}

func attemptNames(attempts []types.StrategyAttempt) []string {
	names := make([]string, len(attempts))
	for i, a := range attempts {
		names[i] = a.Strategy
	}
	return names
}
