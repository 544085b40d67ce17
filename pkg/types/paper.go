// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper is a paper record handed over by a collector. Only the fields the
// extractor and dispatcher read are modelled; everything else about the
// paper lives in the collector's own store.
type Paper struct {
	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical article URL, used as the base for relative links.
	URL string `json:"url" yaml:"url"`

	// DOI is the paper DOI, if known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Source identifies the collector (e.g. "nature", "arxiv", "cell").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Date is the publication date, used by date filters.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// HTML is the raw article page, if the collector fetched it.
	HTML string `json:"html,omitempty" yaml:"html,omitempty"`

	// Text is plain article text, used when no HTML is available.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// PDFPath points at a local PDF copy of the paper, if any.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	// SupplementaryURL is a known supplementary-material URL for the paper.
	SupplementaryURL string `json:"supplementary_url,omitempty" yaml:"supplementary_url,omitempty"`

	// Datasets holds references already attached by the collector.
	Datasets []DatasetReference `json:"datasets,omitempty" yaml:"datasets,omitempty"`
}

// Document returns the SourceDocument link for references found in the paper.
func (p Paper) Document() SourceDocument {
	return SourceDocument{Title: p.Title, URL: p.URL, DOI: p.DOI, Date: p.Date}
}
