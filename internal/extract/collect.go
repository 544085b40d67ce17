// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// collector accumulates references for one document, dropping invalid ones
// and duplicates. A reference is keyed by its URL, else its accession, else
// its DOI; the first reference seen for a key wins.
type collector struct {
	src  types.SourceDocument
	seen map[string]bool
	refs []types.DatasetReference
}

func newCollector(src types.SourceDocument) *collector {
	return &collector{src: src, seen: make(map[string]bool)}
}

// dedupKey returns the grouping key for ref, or "" if ref has no identifier.
func dedupKey(ref types.DatasetReference) string {
	switch {
	case ref.URL != "":
		return "url:" + ref.URL
	case ref.Accession != "":
		return "acc:" + ref.Accession
	case ref.DOI != "":
		return "doi:" + ref.DOI
	}
	return ""
}

// add records ref unless it is invalid or already seen. It reports whether
// ref was kept.
func (c *collector) add(ref types.DatasetReference) bool {
	if !ref.Valid() {
		return false
	}
	key := dedupKey(ref)
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	if ref.Repository == "" {
		ref.Repository = types.RepoWebsite
	}
	ref.Source = c.src
	c.refs = append(c.refs, ref)
	return true
}

// Dedup applies the extractor's grouping rule to refs from any source,
// preserving order.
func Dedup(refs []types.DatasetReference) []types.DatasetReference {
	seen := make(map[string]bool, len(refs))
	out := make([]types.DatasetReference, 0, len(refs))
	for _, r := range refs {
		if !r.Valid() {
			continue
		}
		key := dedupKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
