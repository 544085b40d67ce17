// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"regexp"
	"strings"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Landing page bases for accession databases. Declared as vars so tests can
// substitute httptest servers.
var (
	ncbiBase = "https://www.ncbi.nlm.nih.gov/"
	ebiBase  = "https://www.ebi.ac.uk/"
	ddbjBase = "https://ddbj.nig.ac.jp/"
)

type accessionRule struct {
	tag     types.RepositoryTag
	pattern *regexp.Regexp
	url     func(acc string) string
}

var accessionRules = []accessionRule{
	{types.RepoGEOSeries, regexp.MustCompile(`^GSE\d+$`), geoURL},
	{types.RepoGEOSample, regexp.MustCompile(`^GSM\d+$`), geoURL},
	{types.RepoSRA, regexp.MustCompile(`^SR[PRXS]\d+$`), func(a string) string { return ncbiBase + "sra/" + a }},
	{types.RepoBioProject, regexp.MustCompile(`^PRJNA\d+$`), func(a string) string { return ncbiBase + "bioproject/" + a }},
	{types.RepoBioSample, regexp.MustCompile(`^SAMN\d+$`), func(a string) string { return ncbiBase + "biosample/" + a }},
	{types.RepoArrayExpress, regexp.MustCompile(`^E-[A-Z]{3,4}-\d+$`), func(a string) string { return ebiBase + "biostudies/arrayexpress/studies/" + a }},
	{types.RepoENA, regexp.MustCompile(`^(?:ER[PRXS]\d+|PRJEB\d+)$`), func(a string) string { return ebiBase + "ena/browser/view/" + a }},
	{types.RepoDDBJ, regexp.MustCompile(`^DR[PRXS]\d+$`), func(a string) string { return ddbjBase + "resource/sra-run/" + a }},
}

func geoURL(acc string) string {
	return ncbiBase + "geo/query/acc.cgi?acc=" + acc
}

// AccessionDatabase maps an accession number to the database that issued it
// and the canonical landing page. Unrecognised accessions return "unknown"
// and an empty URL.
func AccessionDatabase(accession string) (types.RepositoryTag, string) {
	acc := strings.ToUpper(strings.TrimSpace(accession))
	for _, r := range accessionRules {
		if r.pattern.MatchString(acc) {
			return r.tag, r.url(acc)
		}
	}
	return types.RepoUnknown, ""
}
