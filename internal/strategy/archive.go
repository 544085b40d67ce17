// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// PageFile is the archived landing page.
const PageFile = "page.html"

// maxPageBytes bounds an archived page.
const maxPageBytes = 32 << 20

type archiveMetadata struct {
	SourceURL   string    `json:"source_url"`
	FinalURL    string    `json:"final_url"`
	Timestamp   time.Time `json:"timestamp"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title"`
}

type webpageArchive struct {
	fetch *httputil.FetchContext
}

// NewWebpageArchive returns the last-resort strategy: save the landing page
// and a metadata record so the reference can be revisited by hand. It fails
// only when the page cannot be fetched.
func NewWebpageArchive(f *httputil.FetchContext) Strategy {
	return &webpageArchive{fetch: f}
}

func (s *webpageArchive) Name() string { return NameArchive }

func (s *webpageArchive) Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error) {
	pageURL := referenceURL(ref)
	if pageURL == "" {
		return Outcome{}, notApplicable("reference has no URL or DOI")
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetch.Timeout)
	defer cancel()

	resp, err := s.fetch.Get(ctx, pageURL, s.fetch.BrowserHeaders(httputil.Origin(pageURL)))
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Outcome{}, fmt.Errorf("reading %s: %w", pageURL, err)
	}
	if err := os.WriteFile(filepath.Join(dir, PageFile), body, 0o644); err != nil {
		return Outcome{}, fmt.Errorf("writing page: %w", err)
	}
	sum := sha256.Sum256(body)
	page := types.FileEntry{Name: PageFile, Size: int64(len(body)), SHA256: hex.EncodeToString(sum[:])}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	meta, err := writeMetadata(dir, archiveMetadata{
		SourceURL:   pageURL,
		FinalURL:    finalURL,
		Timestamp:   time.Now().UTC(),
		ContentType: resp.Header.Get("Content-Type"),
		Title:       pageTitle(body),
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Files: []types.FileEntry{page, meta}}, nil
}

// pageTitle returns the document title, or "" for non-HTML bodies.
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
