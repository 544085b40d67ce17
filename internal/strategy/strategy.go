// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package strategy implements the per-repository download strategies and the
// registry that orders them into fallback chains. A strategy either writes
// files into the directory it is given and returns their manifest, or fails
// with an error the dispatcher classifies as transient (retried) or logical
// (fall through to the next strategy).
package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Strategy names.
const (
	NameFigshareAPI = "figshare-api"
	NameZenodoAPI   = "zenodo-api"
	NameOSFAPI      = "osf-api"
	NameDryadAPI    = "dryad-api"
	NameDirectFile  = "direct-file"
	NameGitHub      = "github-archive"
	NameGitClone    = "git-clone"
	NameGEO         = "geo-supplementary"
	NameBrowser     = "browser"
	NameArchive     = "webpage-archive"
)

// MetadataFile is written by strategies that record what they fetched.
const MetadataFile = "metadata.json"

// ErrNotApplicable is returned when a strategy cannot handle a reference at
// all, for example an API strategy given a URL it cannot parse an ID from.
var ErrNotApplicable = errors.New("strategy not applicable")

// Outcome is what a successful attempt produced.
type Outcome struct {
	// Files is the manifest of files written to the directory.
	Files []types.FileEntry
}

// Strategy is one way of retrieving a dataset.
type Strategy interface {
	Name() string

	// Attempt retrieves ref into dir, which exists and belongs to this
	// reference alone.
	Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error)
}

type logicalError struct {
	err error
}

func (e *logicalError) Error() string { return e.err.Error() }
func (e *logicalError) Unwrap() error { return e.err }

// Logical marks err as a logical failure: retrying the same strategy cannot
// help, so the dispatcher moves to the next one.
func Logical(err error) error {
	if err == nil {
		return nil
	}
	return &logicalError{err: err}
}

// IsLogical reports whether err is a logical failure.
func IsLogical(err error) bool {
	var le *logicalError
	return errors.Is(err, ErrNotApplicable) || errors.As(err, &le)
}

// notApplicable wraps ErrNotApplicable with a reason.
func notApplicable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotApplicable, fmt.Sprintf(format, args...))
}

// firstMatch returns group 1 of the first pattern that matches any of the
// inputs.
func firstMatch(patterns []*regexp.Regexp, inputs ...string) string {
	for _, in := range inputs {
		if in == "" {
			continue
		}
		for _, p := range patterns {
			if m := p.FindStringSubmatch(in); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// referenceURL returns the page to visit for ref: its URL, or the DOI
// resolver URL.
func referenceURL(ref types.DatasetReference) string {
	if ref.URL != "" {
		return ref.URL
	}
	if ref.DOI != "" {
		return doiBase + ref.DOI
	}
	return ""
}

// writeMetadata writes v as indented JSON to dir/metadata.json and returns
// its manifest entry.
func writeMetadata(dir string, v any) (types.FileEntry, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return types.FileEntry{}, fmt.Errorf("marshaling metadata: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644); err != nil {
		return types.FileEntry{}, fmt.Errorf("writing metadata: %w", err)
	}
	h := sha256.Sum256(data)
	return types.FileEntry{Name: MetadataFile, Size: int64(len(data)), SHA256: hex.EncodeToString(h[:])}, nil
}

// apiMetadata is the metadata.json written by the API strategies.
type apiMetadata struct {
	Strategy  string            `json:"strategy"`
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	SourceURL string            `json:"source_url,omitempty"`
	DOI       string            `json:"doi,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Files     []types.FileEntry `json:"files"`
}

// hashFile returns the manifest entry for an existing file. name is
// relative to dir.
func hashFile(dir, name string) (types.FileEntry, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return types.FileEntry{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return types.FileEntry{}, fmt.Errorf("hashing %s: %w", name, err)
	}
	return types.FileEntry{Name: filepath.ToSlash(name), Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}
