// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"sync"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Registry maps repository tags to ordered strategy chains. The archival
// strategy is appended to every chain.
type Registry struct {
	mu       sync.RWMutex
	chains   map[types.RepositoryTag][]Strategy
	fallback []Strategy
	archive  Strategy
}

// NewRegistry builds the standard chains. b may be nil, in which case the
// browser strategy is left out.
func NewRegistry(f *httputil.FetchContext, b Browser, cfg types.BrowserConfig) *Registry {
	direct := NewDirectFile(f)

	// withBrowser appends the browser strategy when one is configured.
	withBrowser := func(chain ...Strategy) []Strategy {
		if b != nil {
			chain = append(chain, NewBrowserStrategy(b, cfg, f.Log))
		}
		return chain
	}

	geo := []Strategy{NewGEOSupplementary(f)}
	r := &Registry{
		chains: map[types.RepositoryTag][]Strategy{
			types.RepoFigshare:  withBrowser(NewFigshare(f), direct),
			types.RepoZenodo:    withBrowser(NewZenodo(f), direct),
			types.RepoOSF:       withBrowser(NewOSF(f), direct),
			types.RepoDryad:     withBrowser(NewDryad(f), direct),
			types.RepoGitHub:    {NewGitHubArchive(f), NewGitClone(f)},
			types.RepoGEOSeries: geo,
			types.RepoGEO:       geo,
		},
		fallback: withBrowser(direct),
		archive:  NewWebpageArchive(f),
	}
	return r
}

// NewEmptyRegistry returns a registry with no chains and the given archival
// strategy (which may be nil). Chains are added with Register.
func NewEmptyRegistry(archive Strategy, fallback ...Strategy) *Registry {
	return &Registry{
		chains:   make(map[types.RepositoryTag][]Strategy),
		fallback: fallback,
		archive:  archive,
	}
}

// Register replaces the chain for tag.
func (r *Registry) Register(tag types.RepositoryTag, chain ...Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[tag.Normalize()] = chain
}

// Resolve returns the strategies to try for tag, in order. Unknown tags get
// the default chain. The result is a fresh slice.
func (r *Registry) Resolve(tag types.RepositoryTag) []Strategy {
	r.mu.RLock()
	chain, ok := r.chains[tag.Normalize()]
	if !ok {
		chain = r.fallback
	}
	out := make([]Strategy, 0, len(chain)+1)
	out = append(out, chain...)
	r.mu.RUnlock()

	if r.archive != nil {
		out = append(out, r.archive)
	}
	return out
}

// Names returns the strategy names in chain.
func Names(chain []Strategy) []string {
	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = s.Name()
	}
	return names
}
