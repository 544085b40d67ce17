// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"slices"
	"strings"
)

// watchWords trigger a keyword scan of a block outside the labelled regions.
var watchWords = []string{
	"data", "dataset", "code", "software", "availability", "accession",
	"repository", "github", "zenodo", "figshare", "dryad", "osf",
}

// linkHints in anchor text make an unrecognised link worth keeping.
var linkHints = []string{"data", "dataset", "code", "software", "repository"}

// doiPatterns capture a bare DOI in group 1.
var doiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:dx\.)?doi\.org/(10\.\d{4,9}/[^\s"'<>]+)`),
	regexp.MustCompile(`(?i)\bdoi:\s*(10\.\d{4,9}/[^\s"'<>]+)`),
	regexp.MustCompile(`(?i)digital\s+object\s+identifier[:\s]+(10\.\d{4,9}/[^\s"'<>]+)`),
}

// accessionPatterns capture an accession in group 1, most specific first.
var accessionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:GEO|SRA|ENA|DDBJ|ArrayExpress|BioSample|BioProject)\s+accession(?:\s+(?:code|number)s?)?[:\s]+([A-Za-z0-9._-]+)`),
	regexp.MustCompile(`(?i)\b(?:GEO|SRA|ENA|DDBJ|ArrayExpress|BioSample|BioProject)\s*:\s*([A-Za-z0-9._-]+)`),
	regexp.MustCompile(`(?i)accession\s+(?:code|number)s?[:\s]+([A-Za-z0-9._-]+)`),
	regexp.MustCompile(`(?i)\b((?:GSE|GSM|SRP|SRR|ERP|ERR|DRP|DRR|PRJNA|PRJEB|SAMN)\d+)\b`),
	regexp.MustCompile(`(?i)\b(E-[A-Z]{3,4}-\d+)\b`),
}

// genericAccession is deliberately permissive and always runs last.
var genericAccession = regexp.MustCompile(`\b([A-Z]{1,3}\d{5,})\b`)

// textURLPattern finds bare URLs in prose.
var textURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// trailingPunct is stripped from identifiers captured at the end of a sentence.
const trailingPunct = ".,;:)]}>'\""

var hasDigit = regexp.MustCompile(`\d`)

// dataTypeRules infer domain tags from region text.
var dataTypeRules = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"neuron_imaging", regexp.MustCompile(`neuron\s+imaging|neuron\s+morphology|calcium\s+imaging|neuronal\s+activity|fluorescence|two-photon|gcamp|microscopy`)},
	{"reconstruction", regexp.MustCompile(`reconstruction|connectome|neuronal\s+circuit`)},
	{"spatial_transcriptomics", regexp.MustCompile(`spatial\s+transcriptomics|single[\s-]cell\s+rna[\s-]seq|scrna[\s-]seq|spatial\s+gene\s+expression|spatial\s+omics`)},
	{"mri", regexp.MustCompile(`\bmri\b|\bfmri\b|magnetic\s+resonance\s+imaging|diffusion\s+mri|brain\s+imaging|tractography`)},
	{"electrophysiology", regexp.MustCompile(`electrophysiology|patch\s+clamp|spike\s+sorting|\beeg\b|\bmeg\b|\blfp\b|action\s+potential|ephys`)},
	{"behavioral", regexp.MustCompile(`behavioral\s+data|behaviour|behavior\s+test|behavioral\s+paradigm|mouse\s+behavior|animal\s+behavior`)},
	{"histology", regexp.MustCompile(`histology|immunohistochemistry|immunofluorescence|tissue\s+section|staining`)},
}

// DataTypes returns the domain tags mentioned in text, in rule order.
func DataTypes(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, r := range dataTypeRules {
		if r.pattern.MatchString(lower) {
			tags = append(tags, r.tag)
		}
	}
	return tags
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	return slices.ContainsFunc(words, func(w string) bool {
		return strings.Contains(lower, w)
	})
}

func trimIdentifier(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), trailingPunct)
}

// collapse folds runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
