// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract finds dataset references in article HTML, plain text and
// PDF files. Each finding is classified by hosting repository and the
// result is deduplicated.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pdiddy/dataset-engine/internal/classify"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// SupplementaryName labels references that point at a paper's supplementary
// material rather than a named dataset.
const SupplementaryName = "Supplementary Materials"

// Options configures an Extractor.
type Options struct {
	// AccessionPatterns replace the generic letters+digits accession
	// pattern. Group 1 (or the whole match) is taken as the accession.
	AccessionPatterns []string

	// DisableGenericAccession drops the generic pattern without a replacement.
	DisableGenericAccession bool

	// SupplementaryURL is emitted as a synthetic reference when a document
	// yields nothing else.
	SupplementaryURL string

	Logger logging.Logger
}

// Extractor finds dataset references in documents. It is safe for
// concurrent use.
type Extractor struct {
	accession        []*regexp.Regexp
	supplementaryURL string
	log              logging.Logger
}

// New compiles opts into an Extractor.
func New(opts Options) (*Extractor, error) {
	pats := slices.Clone(accessionPatterns)
	switch {
	case len(opts.AccessionPatterns) > 0:
		for _, p := range opts.AccessionPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("compiling accession pattern %q: %w", p, err)
			}
			pats = append(pats, re)
		}
	case !opts.DisableGenericAccession:
		pats = append(pats, genericAccession)
	}
	return &Extractor{
		accession:        pats,
		supplementaryURL: opts.SupplementaryURL,
		log:              logging.OrNop(opts.Logger),
	}, nil
}

// FromConfig builds an Extractor from the engine configuration.
func FromConfig(cfg types.ExtractionConfig, log logging.Logger) (*Extractor, error) {
	return New(Options{
		AccessionPatterns:       cfg.AccessionPatterns,
		DisableGenericAccession: cfg.DisableGenericAccession,
		Logger:                  log,
	})
}

// WithSupplementaryURL returns a copy of e that falls back to u when a
// document yields no references.
func (e *Extractor) WithSupplementaryURL(u string) *Extractor {
	c := *e
	c.supplementaryURL = strings.TrimSpace(u)
	return &c
}

// FromHTML extracts references from an HTML document. Relative links are
// resolved against baseURL and every reference is linked to src. Parse
// failures are logged; whatever was collected before the failure is
// returned.
func (e *Extractor) FromHTML(ctx context.Context, doc io.Reader, baseURL string, src types.SourceDocument) (refs []types.DatasetReference) {
	c := newCollector(src)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("html extraction aborted",
				logging.String("url", baseURL), logging.Any("panic", r))
			refs = c.refs
		}
	}()

	d, err := goquery.NewDocumentFromReader(doc)
	if err != nil {
		e.log.Warn("parsing html", logging.String("url", baseURL), logging.Err(err))
		return e.finish(c, nil)
	}
	base, _ := url.Parse(strings.TrimSpace(baseURL))

	suppNodes := make(map[*html.Node]bool)
	var suppRefs []types.DatasetReference
	addSupp := func(_ int, a *goquery.Selection) {
		node := a.Get(0)
		if suppNodes[node] {
			return
		}
		suppNodes[node] = true
		href := resolve(base, a.AttrOr("href", ""))
		if href == "" {
			return
		}
		name := collapse(a.Text())
		if name == "" {
			name = SupplementaryName
		}
		suppRefs = append(suppRefs, types.DatasetReference{
			Name:       name,
			URL:        href,
			Repository: types.RepoSupplementary,
			FoundIn:    types.FoundInSupplementary,
		})
	}
	for _, sel := range supplementarySelectors {
		d.Find(sel).Each(addSupp)
	}
	d.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(a.Text()), supplementaryAnchorText)
	}).Each(addSupp)

	scanned := make(map[*html.Node]bool)
	for _, sel := range availabilitySelectors {
		if ctx.Err() != nil {
			break
		}
		d.Find(sel).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if within(node, scanned) {
				return
			}
			scanned[node] = true
			e.scanRegion(c, s, base, suppNodes)
		})
	}

	d.Find(keywordBlockSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}
		node := s.Get(0)
		if within(node, scanned) || s.Find(containerSelector).Length() > 0 {
			return true
		}
		if containsAny(nodeText(s), watchWords) {
			e.scanRegion(c, s, base, suppNodes)
		}
		return true
	})

	out := e.finish(c, suppRefs)
	e.log.Debug("extracted references",
		logging.String("url", baseURL), logging.Int("count", len(out)))
	return out
}

// FromText extracts references from plain text. Paragraphs separated by
// blank lines are scanned when they mention a watch-list keyword.
func (e *Extractor) FromText(text string, src types.SourceDocument) []types.DatasetReference {
	c := newCollector(src)
	e.scanParagraphs(c, text)
	return e.finish(c, nil)
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

func (e *Extractor) scanParagraphs(c *collector, text string) {
	for _, para := range paragraphBreak.Split(text, -1) {
		para = collapse(para)
		if para == "" || !containsAny(para, watchWords) {
			continue
		}
		e.scanText(c, para, DataTypes(para))
	}
}

// scanRegion harvests anchors and runs the text passes over one region.
func (e *Extractor) scanRegion(c *collector, s *goquery.Selection, base *url.URL, skip map[*html.Node]bool) {
	text := nodeText(s)
	dataTypes := DataTypes(text)

	anchors := s.Find("a[href]")
	if goquery.NodeName(s) == "a" {
		anchors = anchors.AddSelection(s)
	}
	anchors.Each(func(_ int, a *goquery.Selection) {
		if skip[a.Get(0)] {
			return
		}
		if ref, ok := linkReference(a, base); ok {
			ref.DataTypes = dataTypes
			c.add(ref)
		}
	})
	e.scanText(c, text, dataTypes)
}

// linkReference turns an anchor into a reference when its target is a known
// repository or its text hints at data.
func linkReference(a *goquery.Selection, base *url.URL) (types.DatasetReference, bool) {
	href := resolve(base, a.AttrOr("href", ""))
	if href == "" {
		return types.DatasetReference{}, false
	}
	text := collapse(a.Text())

	var doi string
	if m := doiPatterns[0].FindStringSubmatch(href); m != nil {
		doi = trimIdentifier(m[1])
		if unescaped, err := url.PathUnescape(doi); err == nil {
			doi = unescaped
		}
		href = "https://doi.org/" + doi
	}

	if tag, ok := classify.Confident(href, text); ok {
		name := text
		if name == "" {
			name = "Dataset from " + tag.String()
		}
		return types.DatasetReference{
			Name:       name,
			URL:        href,
			Repository: tag,
			DOI:        doi,
			FoundIn:    types.FoundInLink,
		}, true
	}

	if containsAny(text, linkHints) {
		tag := types.RepoWebsite
		if d := classify.RegisteredDomain(href); d != "" {
			tag = types.RepositoryTag(d)
		}
		return types.DatasetReference{
			Name:       text,
			URL:        href,
			Repository: tag,
			DOI:        doi,
			FoundIn:    types.FoundInLinkKeyword,
		}, true
	}
	return types.DatasetReference{}, false
}

// scanText runs the DOI, accession and repository-URL passes over text.
func (e *Extractor) scanText(c *collector, text string, dataTypes []string) {
	for _, re := range doiPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			doi := trimIdentifier(m[1])
			if doi == "" {
				continue
			}
			u := "https://doi.org/" + doi
			tag, ok := classify.Confident(u, "")
			if !ok {
				tag = types.RepoDOI
			}
			c.add(types.DatasetReference{
				Name:       "Dataset DOI: " + doi,
				URL:        u,
				Repository: tag,
				DOI:        doi,
				DataTypes:  dataTypes,
				FoundIn:    types.FoundInTextDOI,
			})
		}
	}

	for _, re := range e.accession {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			acc := m[0]
			if len(m) > 1 {
				acc = m[1]
			}
			acc = strings.ToUpper(trimIdentifier(acc))
			if acc == "" || !hasDigit.MatchString(acc) || strings.HasPrefix(acc, "10.") {
				continue
			}
			tag, u := classify.AccessionDatabase(acc)
			c.add(types.DatasetReference{
				Name:       "Dataset Accession: " + acc,
				URL:        u,
				Repository: tag,
				Accession:  acc,
				DataTypes:  dataTypes,
				FoundIn:    types.FoundInTextAccession,
			})
		}
	}

	for _, raw := range textURLPattern.FindAllString(text, -1) {
		u := trimIdentifier(raw)
		if isDOIResolver(u) {
			continue
		}
		tag, ok := classify.Confident(u, "")
		if !ok {
			continue
		}
		c.add(types.DatasetReference{
			Name:       "Dataset from " + tag.String(),
			URL:        u,
			Repository: tag,
			DataTypes:  dataTypes,
			FoundIn:    types.FoundInTextURL,
		})
	}
}

// finish appends supplementary references and, when the document produced
// nothing at all, the synthetic supplementary reference.
func (e *Extractor) finish(c *collector, supp []types.DatasetReference) []types.DatasetReference {
	for _, r := range supp {
		c.add(r)
	}
	if len(c.refs) == 0 && e.supplementaryURL != "" {
		c.add(types.DatasetReference{
			Name:       SupplementaryName,
			URL:        e.supplementaryURL,
			Repository: types.RepoSupplementary,
			FoundIn:    types.FoundInSupplementary,
		})
	}
	return c.refs
}

// resolve makes href absolute against base. Only http(s) links survive;
// fragments are dropped.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func isDOIResolver(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "doi.org" || host == "dx.doi.org" || host == "www.doi.org"
}

// nodeText returns the visible text under s with a space between text
// nodes so adjacent cells and blocks do not run together.
func nodeText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return collapse(b.String())
}

func within(n *html.Node, set map[*html.Node]bool) bool {
	for ; n != nil; n = n.Parent {
		if set[n] {
			return true
		}
	}
	return false
}
