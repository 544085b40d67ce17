// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

func sampleRecord(name string, ts time.Time) types.HistoryRecord {
	return types.HistoryRecord{
		Status:     types.HistorySuccess,
		Timestamp:  ts,
		Path:       "/data/" + name,
		Files:      []types.FileEntry{{Name: "a.csv", Size: 12, SHA256: "abc"}},
		TotalSize:  12,
		Strategy:   "direct-file",
		Name:       name,
		Repository: types.RepoZenodo,
		URL:        "https://zenodo.org/records/" + name,
	}
}

// stores runs each subtest against both implementations.
func stores(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store {
			s, err := Open(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"memory": func(t *testing.T) Store { return NewMemory() },
	}
}

func TestStore_PutGetRemove(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ts := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)

			assert.False(t, s.Contains(ctx, "k1"))
			_, err := s.Get(ctx, "k1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "k1", sampleRecord("one", ts)))
			assert.True(t, s.Contains(ctx, "k1"))

			got, err := s.Get(ctx, "k1")
			require.NoError(t, err)
			assert.Equal(t, "k1", got.Key)
			assert.Equal(t, types.HistorySuccess, got.Status)
			assert.True(t, ts.Equal(got.Timestamp))
			assert.Equal(t, []types.FileEntry{{Name: "a.csv", Size: 12, SHA256: "abc"}}, got.Files)
			assert.Equal(t, types.RepoZenodo, got.Repository)

			rec := sampleRecord("one", ts)
			rec.Status = types.HistoryFailed
			require.NoError(t, s.Put(ctx, "k1", rec))
			got, err = s.Get(ctx, "k1")
			require.NoError(t, err)
			assert.Equal(t, types.HistoryFailed, got.Status)

			require.NoError(t, s.Remove(ctx, "k1"))
			assert.False(t, s.Contains(ctx, "k1"))
			require.NoError(t, s.Remove(ctx, "k1"))
			require.NoError(t, s.Flush(ctx))
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			require.NoError(t, s.Put(ctx, "old", sampleRecord("old", base)))
			require.NoError(t, s.Put(ctx, "new", sampleRecord("new", base.Add(time.Hour))))
			require.NoError(t, s.Put(ctx, "mid", sampleRecord("mid", base.Add(500*time.Millisecond))))

			recs, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, "new", recs[0].Key)
			assert.Equal(t, "mid", recs[1].Key)
			assert.Equal(t, "old", recs[2].Key)
		})
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				i := i
				wg.Add(1)
				go func() {
					defer wg.Done()
					key := fmt.Sprintf("k%d", i)
					assert.NoError(t, s.Put(ctx, key, sampleRecord(key, time.Now())))
					s.Contains(ctx, key)
				}()
			}
			wg.Wait()

			recs, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, recs, 16)
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", sampleRecord("k", time.Now())))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, DBFile))
	require.NoError(t, err)

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	assert.True(t, s2.Contains(ctx, "k"))
}

func TestOpen_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, filepath.Join(dir, DBFile), s.Path())
}

func TestOpenOrMemory_FailsOpen(t *testing.T) {
	// A regular file where the directory should be makes Open fail.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := OpenOrMemory(filepath.Join(blocker, "sub"), logging.NewNop())
	_, ok := s.(*Memory)
	assert.True(t, ok)
}

func TestSucceeded(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, ok := Succeeded(ctx, s, "missing")
	assert.False(t, ok)

	failed := sampleRecord("f", time.Now())
	failed.Status = types.HistoryFailed
	require.NoError(t, s.Put(ctx, "f", failed))
	_, ok = Succeeded(ctx, s, "f")
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "s", sampleRecord("s", time.Now())))
	rec, ok := Succeeded(ctx, s, "s")
	assert.True(t, ok)
	assert.Equal(t, "s", rec.Key)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Put(ctx, "k", sampleRecord("k", time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))))

	var yb bytes.Buffer
	require.NoError(t, ExportYAML(ctx, s, &yb))
	var fromYAML []types.HistoryRecord
	require.NoError(t, yaml.Unmarshal(yb.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, "k", fromYAML[0].Key)

	var jb bytes.Buffer
	require.NoError(t, ExportJSON(ctx, s, &jb))
	var fromJSON []types.HistoryRecord
	require.NoError(t, json.Unmarshal(jb.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 1)
	assert.Equal(t, "direct-file", fromJSON[0].Strategy)

	var empty bytes.Buffer
	require.NoError(t, ExportJSON(ctx, NewMemory(), &empty))
	assert.Equal(t, "[]\n", empty.String())
}
