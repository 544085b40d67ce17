// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// dataTypeAliases expands a requested data type into the tags and name
// terms that count as a match.
var dataTypeAliases = map[string][]string{
	"neuron_imaging":          {"neuron_imaging", "neural_imaging", "brain_imaging", "microscopy"},
	"reconstruction":          {"reconstruction", "connectomics", "morphology", "connectivity"},
	"spatial_transcriptomics": {"spatial_transcriptomics", "transcriptomics", "gene_expression"},
	"mri":                     {"mri", "fmri", "magnetic_resonance", "diffusion_imaging", "structural_imaging"},
	"electrophysiology":       {"electrophysiology", "ephys", "patch_clamp", "eeg", "ecog", "spike_sorting"},
}

// Filters selects which references a batch downloads.
type Filters struct {
	// DataTypes keeps references tagged with any of the types or their
	// aliases. Untyped references match on their name.
	DataTypes []string

	// Repositories keeps references whose repository tag, or whose source
	// paper's host, matches any entry.
	Repositories []string

	// Since and Until bound the source paper date, inclusive. References
	// with no known date are kept.
	Since time.Time
	Until time.Time

	// MaxCount caps the batch after filtering (0 means no cap).
	MaxCount int

	// Force re-downloads references that already have a success record.
	Force bool
}

// ExpandDataTypes returns the requested types plus their aliases, lower
// cased and without duplicates.
func ExpandDataTypes(requested []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range requested {
		t = strings.ToLower(strings.TrimSpace(t))
		if aliases, ok := dataTypeAliases[t]; ok {
			for _, a := range aliases {
				add(a)
			}
			continue
		}
		add(t)
	}
	return out
}

// Apply returns the references that pass f, in input order.
func (f Filters) Apply(refs []types.DatasetReference) []types.DatasetReference {
	wanted := ExpandDataTypes(f.DataTypes)
	var out []types.DatasetReference
	for _, ref := range refs {
		if f.MaxCount > 0 && len(out) >= f.MaxCount {
			break
		}
		if len(wanted) > 0 && !matchesDataType(ref, wanted) {
			continue
		}
		if len(f.Repositories) > 0 && !matchesRepository(ref, f.Repositories) {
			continue
		}
		if !f.inRange(ref.Source.Date) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func matchesDataType(ref types.DatasetReference, wanted []string) bool {
	if len(ref.DataTypes) > 0 {
		return ref.HasDataType(wanted...)
	}
	name := strings.ToLower(ref.Name)
	for _, w := range wanted {
		if strings.Contains(name, w) || strings.Contains(name, strings.ReplaceAll(w, "_", " ")) {
			return true
		}
	}
	return false
}

func matchesRepository(ref types.DatasetReference, repos []string) bool {
	tag := ref.Repository.Normalize()
	var host string
	if u, err := url.Parse(ref.Source.URL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	for _, r := range repos {
		want := types.RepositoryTag(r).Normalize()
		if tag == want {
			return true
		}
		if host != "" && strings.Contains(host, strings.ToLower(strings.TrimSpace(r))) {
			return true
		}
	}
	return false
}

func (f Filters) inRange(date time.Time) bool {
	if date.IsZero() {
		return true
	}
	if !f.Since.IsZero() && date.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && date.After(f.Until) {
		return false
	}
	return true
}
