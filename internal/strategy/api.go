// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Package-level base URLs, overridden in tests.
var (
	figshareAPIBase = "https://api.figshare.com/v2/"
	zenodoAPIBase   = "https://zenodo.org/api/"
	osfAPIBase      = "https://api.osf.io/v2/"
	dryadBase       = "https://datadryad.org"
	doiBase         = "https://doi.org/"
)

// maxOSFPages bounds pagination through an OSF file listing.
const maxOSFPages = 20

// apiFile is one file listed by a repository API.
type apiFile struct {
	Name string
	URL  string
}

// apiRecord is a repository record reduced to what the API strategies need.
type apiRecord struct {
	ID    string
	Title string
	Files []apiFile
}

// apiStrategy is the common shape of the repository API strategies: parse
// an ID, list the record's files, stream each into the directory.
type apiStrategy struct {
	name   string
	fetch  *httputil.FetchContext
	parse  func(ref types.DatasetReference) string
	lookup func(ctx context.Context, f *httputil.FetchContext, id string) (apiRecord, error)
	header func(f *httputil.FetchContext) http.Header
}

func (s *apiStrategy) Name() string { return s.name }

func (s *apiStrategy) Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error) {
	id := s.parse(ref)
	if id == "" {
		return Outcome{}, notApplicable("no %s identifier in %q", s.name, referenceURL(ref))
	}

	rec, err := s.lookup(ctx, s.fetch, id)
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return Outcome{}, Logical(fmt.Errorf("%s record %s: %w", s.name, id, err))
		}
		return Outcome{}, err
	}
	if len(rec.Files) == 0 {
		return Outcome{}, Logical(fmt.Errorf("%s record %s has no files", s.name, id))
	}

	var hdr http.Header
	if s.header != nil {
		hdr = s.header(s.fetch)
	}

	log := s.fetch.Log.With(logging.String("strategy", s.name), logging.String("id", id))
	// Folder layout is kept; names repeated within a record get a counter.
	used := map[string]bool{MetadataFile: true}
	var out Outcome
	for _, file := range rec.Files {
		if file.URL == "" {
			continue
		}
		name := ""
		if file.Name != "" {
			name = httputil.UniqueName(used, httputil.SafeRelPath(file.Name))
		}
		entry, err := s.fetch.Download(ctx, file.URL, hdr, dir, name)
		if err != nil {
			return Outcome{}, fmt.Errorf("downloading %s: %w", file.Name, err)
		}
		log.Debug("file downloaded", logging.String("file", entry.Name), logging.Int64("size", entry.Size))
		out.Files = append(out.Files, entry)
	}
	if len(out.Files) == 0 {
		return Outcome{}, Logical(fmt.Errorf("%s record %s has no downloadable files", s.name, id))
	}

	meta, err := writeMetadata(dir, apiMetadata{
		Strategy:  s.name,
		ID:        rec.ID,
		Title:     rec.Title,
		SourceURL: referenceURL(ref),
		DOI:       ref.DOI,
		Timestamp: time.Now().UTC(),
		Files:     out.Files,
	})
	if err != nil {
		return Outcome{}, err
	}
	out.Files = append(out.Files, meta)
	return out, nil
}

// Figshare.

var figsharePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)10\.6084/m9\.figshare\.(\d+)`),
	regexp.MustCompile(`(?i)figshare\.com/articles/(?:[^/?#]+/)*?(\d{4,})(?:[/?#]|$)`),
	regexp.MustCompile(`(?i)figshare\.com/ndownloader/articles/(\d+)`),
}

// FigshareID extracts a Figshare article ID from the reference URL or DOI.
func FigshareID(ref types.DatasetReference) string {
	return firstMatch(figsharePatterns, ref.DOI, ref.URL)
}

// NewFigshare returns the Figshare API strategy.
func NewFigshare(f *httputil.FetchContext) Strategy {
	return &apiStrategy{
		name:   NameFigshareAPI,
		fetch:  f,
		parse:  FigshareID,
		lookup: figshareLookup,
		header: func(f *httputil.FetchContext) http.Header {
			return tokenHeader(f, "figshare-token", "token ")
		},
	}
}

func figshareLookup(ctx context.Context, f *httputil.FetchContext, id string) (apiRecord, error) {
	var resp struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		Files []struct {
			Name        string `json:"name"`
			DownloadURL string `json:"download_url"`
		} `json:"files"`
	}
	if err := f.GetJSON(ctx, figshareAPIBase+"articles/"+id, tokenHeader(f, "figshare-token", "token "), &resp); err != nil {
		return apiRecord{}, err
	}
	rec := apiRecord{ID: id, Title: resp.Title}
	for _, file := range resp.Files {
		rec.Files = append(rec.Files, apiFile{Name: file.Name, URL: file.DownloadURL})
	}
	return rec, nil
}

// Zenodo.

var zenodoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)10\.5281/zenodo\.(\d+)`),
	regexp.MustCompile(`(?i)zenodo\.org/(?:api/)?records?/(\d+)`),
}

// ZenodoID extracts a Zenodo record ID from the reference URL or DOI.
func ZenodoID(ref types.DatasetReference) string {
	return firstMatch(zenodoPatterns, ref.DOI, ref.URL)
}

// NewZenodo returns the Zenodo API strategy.
func NewZenodo(f *httputil.FetchContext) Strategy {
	return &apiStrategy{
		name:   NameZenodoAPI,
		fetch:  f,
		parse:  ZenodoID,
		lookup: zenodoLookup,
		header: func(f *httputil.FetchContext) http.Header {
			return tokenHeader(f, "zenodo-token", "Bearer ")
		},
	}
}

func zenodoLookup(ctx context.Context, f *httputil.FetchContext, id string) (apiRecord, error) {
	var resp struct {
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
		Files []struct {
			Key   string `json:"key"`
			Links struct {
				Self     string `json:"self"`
				Content  string `json:"content"`
				Download string `json:"download"`
			} `json:"links"`
		} `json:"files"`
	}
	if err := f.GetJSON(ctx, zenodoAPIBase+"records/"+id, tokenHeader(f, "zenodo-token", "Bearer "), &resp); err != nil {
		return apiRecord{}, err
	}
	rec := apiRecord{ID: id, Title: resp.Metadata.Title}
	for _, file := range resp.Files {
		link := file.Links.Content
		if link == "" {
			link = file.Links.Download
		}
		if link == "" {
			link = file.Links.Self
		}
		rec.Files = append(rec.Files, apiFile{Name: file.Key, URL: link})
	}
	return rec, nil
}

// OSF.

var osfPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)10\.17605/osf\.io/([a-z0-9]{5})\b`),
	regexp.MustCompile(`(?i)osf\.io/([a-z0-9]{5})(?:[/?#]|$)`),
}

// OSFID extracts an OSF project ID from the reference URL or DOI.
func OSFID(ref types.DatasetReference) string {
	return strings.ToLower(firstMatch(osfPatterns, ref.DOI, ref.URL))
}

// NewOSF returns the OSF API strategy. Only top-level files in the project's
// osfstorage are fetched.
func NewOSF(f *httputil.FetchContext) Strategy {
	return &apiStrategy{name: NameOSFAPI, fetch: f, parse: OSFID, lookup: osfLookup}
}

func osfLookup(ctx context.Context, f *httputil.FetchContext, id string) (apiRecord, error) {
	rec := apiRecord{ID: id}
	next := osfAPIBase + "nodes/" + id + "/files/osfstorage/"
	for page := 0; next != "" && page < maxOSFPages; page++ {
		var resp struct {
			Data []struct {
				Attributes struct {
					Name string `json:"name"`
					Kind string `json:"kind"`
				} `json:"attributes"`
				Links struct {
					Download string `json:"download"`
				} `json:"links"`
			} `json:"data"`
			Links struct {
				Next string `json:"next"`
			} `json:"links"`
		}
		if err := f.GetJSON(ctx, next, nil, &resp); err != nil {
			return apiRecord{}, err
		}
		for _, d := range resp.Data {
			if d.Attributes.Kind != "file" {
				continue
			}
			rec.Files = append(rec.Files, apiFile{Name: d.Attributes.Name, URL: d.Links.Download})
		}
		next = resp.Links.Next
	}
	return rec, nil
}

// Dryad.

var dryadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(10\.5061/dryad\.[a-z0-9]+)`),
}

// DryadDOI extracts a Dryad dataset DOI from the reference DOI or URL.
func DryadDOI(ref types.DatasetReference) string {
	u := ref.URL
	if unescaped, err := url.PathUnescape(u); err == nil {
		u = unescaped
	}
	return strings.ToLower(firstMatch(dryadPatterns, ref.DOI, u))
}

// NewDryad returns the Dryad API strategy. It resolves the dataset's latest
// version and fetches every file in it.
func NewDryad(f *httputil.FetchContext) Strategy {
	return &apiStrategy{name: NameDryadAPI, fetch: f, parse: DryadDOI, lookup: dryadLookup}
}

type halLink struct {
	Href string `json:"href"`
}

func dryadLookup(ctx context.Context, f *httputil.FetchContext, doi string) (apiRecord, error) {
	var dataset struct {
		Title string `json:"title"`
		Links struct {
			Version halLink `json:"stash:version"`
		} `json:"_links"`
	}
	if err := f.GetJSON(ctx, dryadBase+"/api/v2/datasets/"+url.PathEscape("doi:"+doi), nil, &dataset); err != nil {
		return apiRecord{}, err
	}
	rec := apiRecord{ID: doi, Title: dataset.Title}
	if dataset.Links.Version.Href == "" {
		return rec, nil
	}

	var files struct {
		Embedded struct {
			Files []struct {
				Path  string `json:"path"`
				Links struct {
					Download halLink `json:"stash:download"`
				} `json:"_links"`
			} `json:"stash:files"`
		} `json:"_embedded"`
	}
	if err := f.GetJSON(ctx, dryadURL(dataset.Links.Version.Href)+"/files", nil, &files); err != nil {
		return apiRecord{}, err
	}
	for _, file := range files.Embedded.Files {
		if file.Links.Download.Href == "" {
			continue
		}
		rec.Files = append(rec.Files, apiFile{Name: file.Path, URL: dryadURL(file.Links.Download.Href)})
	}
	return rec, nil
}

// dryadURL resolves a HAL href against the Dryad base.
func dryadURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return dryadBase + "/" + strings.TrimPrefix(href, "/")
}

// tokenHeader returns an Authorization header carrying the named token, or
// nil when the token is not configured.
func tokenHeader(f *httputil.FetchContext, name, scheme string) http.Header {
	tok := f.Token(name)
	if tok == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", scheme+tok)
	return h
}
