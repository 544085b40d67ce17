// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps URLs, link text and accession numbers to the
// repository that hosts a dataset.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// rule pairs a repository tag with the pattern that identifies it.
type rule struct {
	tag     types.RepositoryTag
	pattern *regexp.Regexp
}

// rules is evaluated in order against "url text", lower-cased; the first
// match wins, so more specific hosts must precede the generic ones that
// would also match them (harvard dataverse before dataverse, GEO before ncbi).
var rules = []rule{
	{types.RepoFigshare, regexp.MustCompile(`figshare\.com|figshare`)},
	{types.RepoZenodo, regexp.MustCompile(`zenodo\.org|zenodo`)},
	{types.RepoDryad, regexp.MustCompile(`datadryad\.org|\bdryad\b`)},
	{types.RepoOSF, regexp.MustCompile(`osf\.io`)},
	{types.RepoGitHub, regexp.MustCompile(`github\.com`)},
	{types.RepoGEO, regexp.MustCompile(`ncbi\.nlm\.nih\.gov/geo|gene expression omnibus|\bgeo\b`)},
	{types.RepoGenBank, regexp.MustCompile(`ncbi\.nlm\.nih\.gov/genbank|genbank`)},
	{types.RepoEBI, regexp.MustCompile(`ebi\.ac\.uk`)},
	{types.RepoNeurodata, regexp.MustCompile(`neurodata\.io`)},
	{types.RepoNeuroVault, regexp.MustCompile(`neurovault\.org`)},
	{types.RepoOpenNeuro, regexp.MustCompile(`openneuro\.org`)},
	{types.RepoBrainMaps, regexp.MustCompile(`brainmaps\.org`)},
	{types.RepoAllenBrain, regexp.MustCompile(`brain-map\.org|allen brain`)},
	{types.RepoHCP, regexp.MustCompile(`humanconnectome\.org`)},
	{types.RepoUKBiobank, regexp.MustCompile(`ukbiobank\.ac\.uk`)},
	{types.RepoNCBI, regexp.MustCompile(`ncbi\.nlm\.nih\.gov`)},
	{types.RepoHarvardDataverse, regexp.MustCompile(`dataverse\.harvard\.edu`)},
	{types.RepoDataverse, regexp.MustCompile(`dataverse`)},
	{types.RepoIEEEDataport, regexp.MustCompile(`ieee-dataport`)},
	{types.RepoKaggle, regexp.MustCompile(`kaggle\.com`)},
	{types.RepoCRCNS, regexp.MustCompile(`crcns\.org`)},
	{types.RepoNeuroMorpho, regexp.MustCompile(`neuromorpho\.org`)},
	{types.RepoHuggingFace, regexp.MustCompile(`huggingface\.co`)},
	{types.RepoCodeOcean, regexp.MustCompile(`codeocean\.com`)},
	{types.RepoMendeley, regexp.MustCompile(`data\.mendeley\.com`)},
	{types.RepoSynapse, regexp.MustCompile(`synapse\.org`)},
	{types.RepoDANDI, regexp.MustCompile(`dandiarchive\.org`)},
	{types.RepoEBRAINS, regexp.MustCompile(`ebrains\.eu`)},
	{types.RepoGIN, regexp.MustCompile(`gin\.g-node\.org`)},
	{types.RepoGoogleDrive, regexp.MustCompile(`drive\.google\.com`)},
}

// datasetHints are words in link text that make an unrecognised host worth
// keeping as a weak reference.
var datasetHints = []string{"data", "dataset", "repository", "code"}

// Confident reports the rule-table tag for url and text, and whether any
// rule matched.
func Confident(rawURL, text string) (types.RepositoryTag, bool) {
	combined := strings.ToLower(rawURL + " " + text)
	for _, r := range rules {
		if r.pattern.MatchString(combined) {
			return r.tag, true
		}
	}
	return "", false
}

// Classify returns the repository tag for a URL and its surrounding text.
// A rule-table hit wins. Otherwise, if the text hints at data, the URL's
// registered domain is returned as a weak tag. Everything else is "website".
func Classify(rawURL, text string) types.RepositoryTag {
	if tag, ok := Confident(rawURL, text); ok {
		return tag
	}
	if HintsData(text) {
		if d := RegisteredDomain(rawURL); d != "" {
			return types.RepositoryTag(d)
		}
	}
	return types.RepoWebsite
}

// HintsData reports whether text contains a dataset keyword.
func HintsData(text string) bool {
	lower := strings.ToLower(text)
	for _, h := range datasetHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// RegisteredDomain returns the eTLD+1 of rawURL ("data.example.co.uk" ->
// "example.co.uk"), or the bare host when the public suffix list has no
// answer. It returns "" when rawURL has no host.
func RegisteredDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
