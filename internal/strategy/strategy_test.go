// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// overrideBaseURLs points every package-level base URL at the test server
// and returns a function that restores the originals.
func overrideBaseURLs(tsURL string) func() {
	origFigshare := figshareAPIBase
	origZenodo := zenodoAPIBase
	origOSF := osfAPIBase
	origDryad := dryadBase
	origDOI := doiBase
	origGitHub := githubBase
	origGEO := geoSeriesBase

	figshareAPIBase = tsURL + "/figshare/v2/"
	zenodoAPIBase = tsURL + "/zenodo/api/"
	osfAPIBase = tsURL + "/osf/v2/"
	dryadBase = tsURL + "/dryad"
	doiBase = tsURL + "/doi/"
	githubBase = tsURL + "/github"
	geoSeriesBase = tsURL + "/geo/series/"

	return func() {
		figshareAPIBase = origFigshare
		zenodoAPIBase = origZenodo
		osfAPIBase = origOSF
		dryadBase = origDryad
		doiBase = origDOI
		githubBase = origGitHub
		geoSeriesBase = origGEO
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func fileNames(files []types.FileEntry) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func TestLogical(t *testing.T) {
	assert.Nil(t, Logical(nil))

	base := errors.New("no files")
	err := Logical(base)
	assert.True(t, IsLogical(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "no files", err.Error())

	assert.True(t, IsLogical(notApplicable("no id in %q", "x")))
	assert.ErrorIs(t, notApplicable("x"), ErrNotApplicable)

	assert.False(t, IsLogical(&httputil.StatusError{Code: 503, URL: "u"}))
	assert.False(t, IsLogical(context.DeadlineExceeded))
}

func TestIdentifierParsing(t *testing.T) {
	tests := []struct {
		name  string
		parse func(types.DatasetReference) string
		ref   types.DatasetReference
		want  string
	}{
		{"figshare doi", FigshareID, types.DatasetReference{DOI: "10.6084/m9.figshare.1234567.v2"}, "1234567"},
		{"figshare url", FigshareID, types.DatasetReference{URL: "https://figshare.com/articles/dataset/Neuron_traces/7654321/1"}, "7654321"},
		{"figshare short url", FigshareID, types.DatasetReference{URL: "https://figshare.com/articles/7654321"}, "7654321"},
		{"figshare other", FigshareID, types.DatasetReference{URL: "https://zenodo.org/records/1"}, ""},
		{"zenodo doi", ZenodoID, types.DatasetReference{DOI: "10.5281/zenodo.1234567"}, "1234567"},
		{"zenodo record url", ZenodoID, types.DatasetReference{URL: "https://zenodo.org/records/998877"}, "998877"},
		{"zenodo legacy url", ZenodoID, types.DatasetReference{URL: "https://zenodo.org/record/998877#.Y"}, "998877"},
		{"osf url", OSFID, types.DatasetReference{URL: "https://osf.io/AB3CD/"}, "ab3cd"},
		{"osf doi", OSFID, types.DatasetReference{DOI: "10.17605/OSF.IO/XY7ZW"}, "xy7zw"},
		{"osf too long", OSFID, types.DatasetReference{URL: "https://osf.io/preprints"}, ""},
		{"dryad doi", DryadDOI, types.DatasetReference{DOI: "10.5061/dryad.2bvq83bq4"}, "10.5061/dryad.2bvq83bq4"},
		{"dryad url", DryadDOI, types.DatasetReference{URL: "https://datadryad.org/stash/dataset/doi:10.5061%2Fdryad.2bvq83bq4"}, "10.5061/dryad.2bvq83bq4"},
		{"geo accession", GEOSeries, types.DatasetReference{Accession: "GSE123456"}, "GSE123456"},
		{"geo url", GEOSeries, types.DatasetReference{URL: "https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi?acc=gse98765"}, "GSE98765"},
		{"geo sample", GEOSeries, types.DatasetReference{Accession: "GSM123456"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.parse(tt.ref))
		})
	}
}

func TestGitHubRepo(t *testing.T) {
	owner, repo, ok := GitHubRepo("https://github.com/allenlab/neuron-tools.git")
	require.True(t, ok)
	assert.Equal(t, "allenlab", owner)
	assert.Equal(t, "neuron-tools", repo)

	owner, repo, ok = GitHubRepo("https://github.com/allenlab/neuron-tools/tree/main/data")
	require.True(t, ok)
	assert.Equal(t, "allenlab/neuron-tools", owner+"/"+repo)

	_, _, ok = GitHubRepo("https://gitlab.com/a/b")
	assert.False(t, ok)
}

func TestGEOSeriesDir(t *testing.T) {
	tests := map[string]string{
		"GSE123456": "GSE123nnn",
		"GSE1234":   "GSE1nnn",
		"GSE999":    "GSEnnn",
		"GSE12":     "GSEnnn",
		"gse54321":  "GSE54nnn",
	}
	for acc, want := range tests {
		assert.Equal(t, want, GEOSeriesDir(acc), acc)
	}
}

func TestHasDataExtension(t *testing.T) {
	tests := map[string]bool{
		"https://host.org/files/traces.csv":          true,
		"https://host.org/files/volume.NII.GZ":       true,
		"https://host.org/files/recording.nwb?dl=1":  true,
		"https://host.org/dataset/landing":           false,
		"https://host.org/paper.pdf":                 false,
		"https://host.org/page.html":                 false,
		"https://host.org/download?file=a.csv":       false,
	}
	for u, want := range tests {
		assert.Equal(t, want, HasDataExtension(u), u)
	}
}

func TestDirectFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, httputil.DefaultBrowserUserAgent, r.Header.Get("User-Agent"))
		assert.True(t, strings.HasSuffix(r.Header.Get("Referer"), "/"))
		w.Write([]byte("1,2,3\n"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	s := NewDirectFile(httputil.NewTestFetchContext(ts.Client()))
	assert.Equal(t, NameDirectFile, s.Name())

	out, err := s.Attempt(context.Background(), types.DatasetReference{URL: ts.URL + "/data/traces.csv"}, dir)
	require.NoError(t, err)
	require.Len(t, out.Files, 1)
	assert.Equal(t, "traces.csv", out.Files[0].Name)
	assert.Equal(t, "1,2,3\n", readFile(t, filepath.Join(dir, "traces.csv")))

	_, err = s.Attempt(context.Background(), types.DatasetReference{URL: ts.URL + "/landing"}, dir)
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestWebpageArchive(t *testing.T) {
	const page = `<html><head><title>  Neuron   dataset </title></head><body>landing</body></html>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/landing", http.StatusFound)
		case "/landing", "/doi/10.1234/abc":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(page))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()
	defer overrideBaseURLs(ts.URL)()

	s := NewWebpageArchive(httputil.NewTestFetchContext(ts.Client()))

	t.Run("redirected page", func(t *testing.T) {
		dir := t.TempDir()
		out, err := s.Attempt(context.Background(), types.DatasetReference{URL: ts.URL + "/old"}, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{PageFile, MetadataFile}, fileNames(out.Files))
		assert.Equal(t, page, readFile(t, filepath.Join(dir, PageFile)))

		var meta map[string]any
		require.NoError(t, json.Unmarshal([]byte(readFile(t, filepath.Join(dir, MetadataFile))), &meta))
		assert.Equal(t, ts.URL+"/old", meta["source_url"])
		assert.Equal(t, ts.URL+"/landing", meta["final_url"])
		assert.Equal(t, "Neuron dataset", meta["title"])
		assert.Equal(t, "text/html; charset=utf-8", meta["content_type"])
		assert.NotEmpty(t, meta["timestamp"])
	})

	t.Run("doi only", func(t *testing.T) {
		out, err := s.Attempt(context.Background(), types.DatasetReference{DOI: "10.1234/abc"}, t.TempDir())
		require.NoError(t, err)
		assert.Len(t, out.Files, 2)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := s.Attempt(context.Background(), types.DatasetReference{URL: ts.URL + "/gone"}, t.TempDir())
		var se *httputil.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.Code)
	})

	t.Run("accession only", func(t *testing.T) {
		_, err := s.Attempt(context.Background(), types.DatasetReference{Accession: "XY12345"}, t.TempDir())
		assert.ErrorIs(t, err, ErrNotApplicable)
	})
}

type namedStub string

func (n namedStub) Name() string { return string(n) }
func (n namedStub) Attempt(context.Context, types.DatasetReference, string) (Outcome, error) {
	return Outcome{}, nil
}

func TestRegistry_Chains(t *testing.T) {
	f := httputil.NewTestFetchContext(http.DefaultClient)
	r := NewRegistry(f, nil, types.BrowserConfig{})

	tests := []struct {
		tag  types.RepositoryTag
		want []string
	}{
		{types.RepoFigshare, []string{NameFigshareAPI, NameDirectFile, NameArchive}},
		{"Zenodo", []string{NameZenodoAPI, NameDirectFile, NameArchive}},
		{types.RepoOSF, []string{NameOSFAPI, NameDirectFile, NameArchive}},
		{types.RepoDryad, []string{NameDryadAPI, NameDirectFile, NameArchive}},
		{types.RepoGitHub, []string{NameGitHub, NameGitClone, NameArchive}},
		{types.RepoGEOSeries, []string{NameGEO, NameArchive}},
		{"geo series", []string{NameGEO, NameArchive}},
		{types.RepoGEO, []string{NameGEO, NameArchive}},
		{"example.org", []string{NameDirectFile, NameArchive}},
		{types.RepoSupplementary, []string{NameDirectFile, NameArchive}},
		{"", []string{NameDirectFile, NameArchive}},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			assert.Equal(t, tt.want, Names(r.Resolve(tt.tag)))
		})
	}
}

func TestRegistry_WithBrowser(t *testing.T) {
	f := httputil.NewTestFetchContext(http.DefaultClient)
	r := NewRegistry(f, &stubBrowser{}, types.BrowserConfig{Enabled: true})

	assert.Equal(t, []string{NameZenodoAPI, NameDirectFile, NameBrowser, NameArchive}, Names(r.Resolve(types.RepoZenodo)))
	assert.Equal(t, []string{NameDirectFile, NameBrowser, NameArchive}, Names(r.Resolve("kaggle")))
	assert.Equal(t, []string{NameGitHub, NameGitClone, NameArchive}, Names(r.Resolve(types.RepoGitHub)))
}

func TestRegistry_Register(t *testing.T) {
	r := NewEmptyRegistry(namedStub("archive"), namedStub("fallback"))
	r.Register("Custom", namedStub("a"), namedStub("b"))

	assert.Equal(t, []string{"a", "b", "archive"}, Names(r.Resolve("custom")))
	assert.Equal(t, []string{"fallback", "archive"}, Names(r.Resolve("other")))

	// Resolve returns a copy.
	chain := r.Resolve("custom")
	chain[0] = namedStub("mutated")
	assert.Equal(t, "a", r.Resolve("custom")[0].Name())

	assert.Empty(t, NewEmptyRegistry(nil).Resolve("x"))
}
