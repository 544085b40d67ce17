// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// geoSeriesBase is the HTTPS mirror of the GEO FTP series tree, overridden
// in tests.
var geoSeriesBase = "https://ftp.ncbi.nlm.nih.gov/geo/series/"

var geoSeriesPattern = regexp.MustCompile(`(?i)\b(GSE\d+)\b`)

// GEOSeries extracts a GEO Series accession from the reference accession
// or URL.
func GEOSeries(ref types.DatasetReference) string {
	return strings.ToUpper(firstMatch([]*regexp.Regexp{geoSeriesPattern}, ref.Accession, ref.URL))
}

// GEOSeriesDir returns the range directory GEO files a series under:
// GSE123456 lives in GSE123nnn, GSE12 in GSEnnn.
func GEOSeriesDir(acc string) string {
	digits := strings.TrimPrefix(strings.ToUpper(acc), "GSE")
	if len(digits) <= 3 {
		return "GSEnnn"
	}
	return "GSE" + digits[:len(digits)-3] + "nnn"
}

// GEOSupplementaryURL returns the listing URL of a series' supplementary
// directory.
func GEOSupplementaryURL(acc string) string {
	return geoSeriesBase + GEOSeriesDir(acc) + "/" + acc + "/suppl/"
}

type geoSupplementary struct {
	fetch *httputil.FetchContext
}

// NewGEOSupplementary returns the strategy that downloads every file in a
// GEO Series supplementary directory.
func NewGEOSupplementary(f *httputil.FetchContext) Strategy {
	return &geoSupplementary{fetch: f}
}

func (s *geoSupplementary) Name() string { return NameGEO }

func (s *geoSupplementary) Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error) {
	acc := GEOSeries(ref)
	if acc == "" {
		return Outcome{}, notApplicable("no GEO Series accession in %q", referenceURL(ref))
	}

	listing := GEOSupplementaryURL(acc)
	names, err := s.list(ctx, listing)
	if err != nil {
		return Outcome{}, err
	}
	if len(names) == 0 {
		return Outcome{}, Logical(fmt.Errorf("%s has no supplementary files", acc))
	}

	log := s.fetch.Log.With(logging.String("accession", acc))
	var out Outcome
	for _, name := range names {
		entry, err := s.fetch.Download(ctx, listing+url.PathEscape(name), nil, dir, name)
		if err != nil {
			return Outcome{}, fmt.Errorf("downloading %s: %w", name, err)
		}
		log.Debug("supplementary file downloaded", logging.String("file", entry.Name))
		out.Files = append(out.Files, entry)
	}
	return out, nil
}

// list parses an HTTP directory index and returns the file names it links
// to. Parent and subdirectory links are skipped.
func (s *geoSupplementary) list(ctx context.Context, listing string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetch.Timeout)
	defer cancel()

	resp, err := s.fetch.Get(ctx, listing, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing listing %s: %w", listing, err)
	}

	var names []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "/") ||
			strings.HasPrefix(href, "../") || strings.HasSuffix(href, "/") || strings.Contains(href, "://") {
			return
		}
		name, err := url.PathUnescape(href)
		if err != nil || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	})
	return names, nil
}
