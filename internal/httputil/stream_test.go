// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

func sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func TestDownload_NameFromURL(t *testing.T) {
	body := []byte("a,b\n1,2\n")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.org/", r.Header.Get("Referer"))
		assert.Equal(t, DefaultBrowserUserAgent, r.Header.Get("User-Agent"))
		w.Write(body)
	}))
	defer ts.Close()

	dir := t.TempDir()
	f := NewTestFetchContext(ts.Client())
	entry, err := f.Download(context.Background(), ts.URL+"/files/table%201.csv",
		f.BrowserHeaders("https://example.org/"), dir, "")
	require.NoError(t, err)

	assert.Equal(t, types.FileEntry{Name: "table 1.csv", Size: int64(len(body)), SHA256: sum(body)}, entry)
	got, err := os.ReadFile(filepath.Join(dir, "table 1.csv"))
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// No temporary files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownload_ContentDisposition(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="../../evil.zip"`)
		w.Write([]byte("PK"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	entry, err := NewTestFetchContext(ts.Client()).Download(context.Background(), ts.URL+"/download", nil, dir, "")
	require.NoError(t, err)
	assert.Equal(t, "evil.zip", entry.Name)
	assert.FileExists(t, filepath.Join(dir, "evil.zip"))
}

func TestDownload_SniffsExtension(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(png)
	}))
	defer ts.Close()

	entry, err := NewTestFetchContext(ts.Client()).Download(context.Background(), ts.URL+"/", nil, t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "download.png", entry.Name)
}

func TestDownload_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dir := t.TempDir()
	_, err := NewTestFetchContext(ts.Client()).Download(context.Background(), ts.URL+"/x.csv", nil, dir, "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestSafeFileName(t *testing.T) {
	tests := map[string]string{
		"data.csv":          "data.csv",
		"../../etc/passwd":  "passwd",
		`C:\temp\x.zip`:     "x.zip",
		"a:b*c?.txt":        "a_b_c_.txt",
		".hidden":           "hidden",
		"":                  "download",
		"/":                 "download",
		"line\nbreak.txt":   "linebreak.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFileName(in), in)
	}
}

func TestSafeRelPath(t *testing.T) {
	tests := map[string]string{
		"raw/data.csv":      "raw/data.csv",
		"../../etc/passwd":  "etc/passwd",
		"/abs/x.csv":        "abs/x.csv",
		`sub\dir\a.csv`:     "sub/dir/a.csv",
		"a/./b//c.txt":      "a/b/c.txt",
		"raw/.cache/q?.csv": "raw/cache/q_.csv",
		"":                  "download",
		"../..":             "download",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeRelPath(in), in)
	}
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{"metadata.json": true}
	assert.Equal(t, "data.csv", UniqueName(used, "data.csv"))
	assert.Equal(t, "Data (2).csv", UniqueName(used, "Data.csv"))
	assert.Equal(t, "data (3).csv", UniqueName(used, "data.csv"))
	assert.Equal(t, "metadata (2).json", UniqueName(used, "metadata.json"))
	assert.Equal(t, "raw/data.csv", UniqueName(used, "raw/data.csv"))
	assert.Equal(t, "README", UniqueName(used, "README"))
	assert.Equal(t, "README (2)", UniqueName(used, "README"))
}

func TestDownload_KeepsRelativePath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer ts.Close()

	dir := t.TempDir()
	f := NewTestFetchContext(ts.Client())
	raw, err := f.Download(context.Background(), ts.URL+"/1", nil, dir, "raw/data.csv")
	require.NoError(t, err)
	processed, err := f.Download(context.Background(), ts.URL+"/2", nil, dir, "processed/data.csv")
	require.NoError(t, err)
	escaped, err := f.Download(context.Background(), ts.URL+"/3", nil, filepath.Join(dir, "inner"), "../out.csv")
	require.NoError(t, err)

	assert.Equal(t, "raw/data.csv", raw.Name)
	assert.Equal(t, "processed/data.csv", processed.Name)
	assert.Equal(t, "out.csv", escaped.Name)

	got, err := os.ReadFile(filepath.Join(dir, "raw", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "/1", string(got))
	got, err = os.ReadFile(filepath.Join(dir, "processed", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "/2", string(got))
	assert.FileExists(t, filepath.Join(dir, "inner", "out.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "out.csv"))
}

func TestURLFileName(t *testing.T) {
	assert.Equal(t, "x.tar.gz", URLFileName("https://h.org/a/x.tar.gz?dl=1"))
	assert.Equal(t, "", URLFileName("https://h.org/"))
	assert.Equal(t, "", URLFileName("https://h.org"))
}

func TestTotalSize(t *testing.T) {
	assert.Equal(t, int64(7), TotalSize([]types.FileEntry{{Size: 3}, {Size: 4}}))
}
