// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest connects collectors to the engine: it takes paper records,
// extracts dataset references from whatever content each paper carries
// (HTML, text, a PDF, or a page fetched from its URL) and hands the
// deduplicated references to the download dispatcher.
package harvest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/dataset-engine/internal/classify"
	"github.com/pdiddy/dataset-engine/internal/download"
	"github.com/pdiddy/dataset-engine/internal/extract"
	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// maxPageBytes bounds a fetched article page.
const maxPageBytes = 16 << 20

// Pipeline runs papers through extraction and download.
type Pipeline struct {
	Extractor  *extract.Extractor
	Dispatcher *download.Dispatcher

	// Fetch, when set, is used to fetch article pages for papers that
	// carry only a URL.
	Fetch *httputil.FetchContext

	Log logging.Logger
}

// Report summarizes a harvest run.
type Report struct {
	Papers     int                      `json:"papers" yaml:"papers"`
	References []types.DatasetReference `json:"references" yaml:"references"`
	Batch      types.BatchResult        `json:"batch" yaml:"batch"`
}

// References extracts the dataset references of every paper, keeps any the
// collector already attached, and deduplicates across papers (first seen
// wins).
func (p *Pipeline) References(ctx context.Context, papers []types.Paper) []types.DatasetReference {
	log := logging.OrNop(p.Log)
	var all []types.DatasetReference
	for _, paper := range papers {
		if ctx.Err() != nil {
			break
		}
		refs := p.paperReferences(ctx, paper)
		log.Info("paper scanned",
			logging.String("title", paper.Title), logging.Int("references", len(refs)))
		all = append(all, refs...)
	}
	return extract.Dedup(all)
}

func (p *Pipeline) paperReferences(ctx context.Context, paper types.Paper) []types.DatasetReference {
	log := logging.OrNop(p.Log).With(logging.String("paper", paper.URL))
	src := paper.Document()

	var refs []types.DatasetReference
	for _, ref := range paper.Datasets {
		if ref.Source == (types.SourceDocument{}) {
			ref.Source = src
		}
		if ref.Repository == "" {
			ref.Repository = classify.Classify(ref.URL, ref.Name)
		}
		refs = append(refs, ref)
	}

	e := p.Extractor
	if paper.SupplementaryURL != "" {
		e = e.WithSupplementaryURL(paper.SupplementaryURL)
	}

	html := paper.HTML
	if html == "" && paper.Text == "" && paper.PDFPath == "" && paper.URL != "" && p.Fetch != nil {
		page, err := FetchPage(ctx, p.Fetch, paper.URL)
		if err != nil {
			log.Warn("fetching article page", logging.Err(err))
		}
		html = page
	}

	switch {
	case html != "":
		refs = append(refs, e.FromHTML(ctx, strings.NewReader(html), paper.URL, src)...)
	case paper.Text != "":
		refs = append(refs, e.FromText(paper.Text, src)...)
	}
	if paper.PDFPath != "" {
		found, err := e.FromPDF(ctx, paper.PDFPath, src)
		if err != nil {
			log.Warn("reading pdf", logging.String("path", paper.PDFPath), logging.Err(err))
		}
		refs = append(refs, found...)
	}
	return refs
}

// Run extracts references from papers and downloads those passing f.
func (p *Pipeline) Run(ctx context.Context, papers []types.Paper, f download.Filters) Report {
	refs := p.References(ctx, papers)
	return Report{
		Papers:     len(papers),
		References: refs,
		Batch:      p.Dispatcher.DownloadMany(ctx, refs, f),
	}
}

// FetchPage fetches an article page as a browser would and returns its body.
func FetchPage(ctx context.Context, f *httputil.FetchContext, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	resp, err := f.Get(ctx, pageURL, f.BrowserHeaders(httputil.Origin(pageURL)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", pageURL, err)
	}
	return string(body), nil
}
