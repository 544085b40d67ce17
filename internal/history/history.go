// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records download attempts so repeated runs skip
// references that already succeeded. The durable store is a SQLite file
// under the download root; an in-memory store backs tests and the
// fail-open path.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// ErrNotFound is returned by Get when no record exists for a key.
var ErrNotFound = errors.New("history record not found")

// Store is a key to record mapping of download attempts. Implementations
// allow concurrent readers and serialize writers.
type Store interface {
	// Contains reports whether any record exists for key.
	Contains(ctx context.Context, key string) bool
	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*types.HistoryRecord, error)
	// Put creates or overwrites the record for key.
	Put(ctx context.Context, key string, rec types.HistoryRecord) error
	// Remove deletes the record for key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Flush makes all completed writes durable.
	Flush(ctx context.Context) error
	// List returns all records, newest first.
	List(ctx context.Context) ([]types.HistoryRecord, error)
	Close() error
}

// OpenOrMemory opens the durable store under dir. If that fails the error
// is logged and an empty in-memory store is returned, so a broken history
// file costs redundant downloads rather than a failed run.
func OpenOrMemory(dir string, log logging.Logger) Store {
	s, err := Open(dir)
	if err != nil {
		logging.OrNop(log).Warn("history unavailable, continuing without it",
			logging.String("dir", dir), logging.Err(err))
		return NewMemory()
	}
	return s
}

// Succeeded reports whether s holds a success record for key. Read errors
// count as "no history".
func Succeeded(ctx context.Context, s Store, key string) (*types.HistoryRecord, bool) {
	rec, err := s.Get(ctx, key)
	if err != nil || rec == nil {
		return nil, false
	}
	return rec, rec.Status == types.HistorySuccess
}

// ExportYAML writes every record in s to w as a YAML list.
func ExportYAML(ctx context.Context, s Store, w io.Writer) error {
	recs, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes every record in s to w as an indented JSON array.
func ExportJSON(ctx context.Context, s Store, w io.Writer) error {
	recs, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if recs == nil {
		recs = []types.HistoryRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
