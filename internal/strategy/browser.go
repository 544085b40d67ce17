// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Browser defaults.
const (
	DefaultBrowserTimeout = 2 * time.Minute
	DefaultPollInterval   = time.Second
	DefaultMaxClicks      = 3
)

// partialSuffixes mark files a browser is still writing.
var partialSuffixes = []string{".crdownload", ".part", ".tmp", ".download"}

// Selector locates download controls on a page. XPath selectors match by
// visible text; the rest are CSS.
type Selector struct {
	Query string
	XPath bool
}

// DownloadSelectors is the priority list of download controls, attribute
// based first, then text based.
var DownloadSelectors = []Selector{
	{Query: `a[download]`},
	{Query: `[data-test*="download" i], [data-testid*="download" i]`},
	{Query: `a[href*="/download" i], a[href*="download=" i]`},
	{Query: `button[aria-label*="download" i], a[aria-label*="download" i]`},
	{Query: `a[class*="download" i], button[class*="download" i]`},
	{Query: `//a[contains(translate(normalize-space(.), "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz"), "download")]`, XPath: true},
	{Query: `//button[contains(translate(normalize-space(.), "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz"), "download")]`, XPath: true},
}

// PageInfo describes the page a browser visited.
type PageInfo struct {
	FinalURL string
	Title    string
	Clicked  int
}

// Browser drives a real browser. Download loads pageURL with downloads
// directed into dir, clicks up to maxClicks controls matching
// DownloadSelectors, then calls wait and keeps the page open until it
// returns.
type Browser interface {
	Download(ctx context.Context, pageURL, dir string, maxClicks int, wait func(context.Context) error) (PageInfo, error)
}

type browserStrategy struct {
	browser   Browser
	timeout   time.Duration
	poll      time.Duration
	maxClicks int
	log       logging.Logger
}

// NewBrowserStrategy wraps b as a download strategy configured by cfg.
func NewBrowserStrategy(b Browser, cfg types.BrowserConfig, log logging.Logger) Strategy {
	s := &browserStrategy{
		browser:   b,
		timeout:   cfg.Timeout,
		poll:      cfg.PollInterval,
		maxClicks: cfg.MaxClicks,
		log:       logging.OrNop(log),
	}
	if s.timeout <= 0 {
		s.timeout = DefaultBrowserTimeout
	}
	if s.poll <= 0 {
		s.poll = DefaultPollInterval
	}
	if s.maxClicks <= 0 {
		s.maxClicks = DefaultMaxClicks
	}
	return s
}

func (s *browserStrategy) Name() string { return NameBrowser }

type browserMetadata struct {
	SourceURL string            `json:"source_url"`
	FinalURL  string            `json:"final_url,omitempty"`
	Title     string            `json:"title,omitempty"`
	Clicked   int               `json:"clicked"`
	Timestamp time.Time         `json:"timestamp"`
	Files     []types.FileEntry `json:"files"`
}

func (s *browserStrategy) Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error) {
	pageURL := referenceURL(ref)
	if pageURL == "" {
		return Outcome{}, notApplicable("reference has no URL or DOI")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	before, err := listComplete(dir)
	if err != nil {
		return Outcome{}, err
	}

	var names []string
	info, err := s.browser.Download(ctx, pageURL, dir, s.maxClicks, func(ctx context.Context) error {
		var werr error
		names, werr = awaitDownloads(ctx, dir, s.poll, before)
		return werr
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return Outcome{}, Logical(fmt.Errorf("browser download from %s timed out after %s", pageURL, s.timeout))
		}
		return Outcome{}, err
	}
	if info.Clicked == 0 {
		return Outcome{}, Logical(fmt.Errorf("no download controls found on %s", pageURL))
	}
	if len(names) == 0 {
		return Outcome{}, Logical(fmt.Errorf("no download completed from %s", pageURL))
	}

	var out Outcome
	for _, name := range names {
		entry, err := hashFile(dir, name)
		if err != nil {
			return Outcome{}, err
		}
		out.Files = append(out.Files, entry)
	}
	s.log.Info("browser download complete",
		logging.String("url", pageURL), logging.Int("clicked", info.Clicked), logging.Int("files", len(out.Files)))

	meta, err := writeMetadata(dir, browserMetadata{
		SourceURL: pageURL,
		FinalURL:  info.FinalURL,
		Title:     info.Title,
		Clicked:   info.Clicked,
		Timestamp: time.Now().UTC(),
		Files:     out.Files,
	})
	if err != nil {
		return Outcome{}, err
	}
	out.Files = append(out.Files, meta)
	return out, nil
}

// awaitDownloads polls dir until at least one new complete file exists, no
// partial files remain and sizes are unchanged across two polls. It returns
// the new file names, sorted.
func awaitDownloads(ctx context.Context, dir string, poll time.Duration, before map[string]int64) ([]string, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var last map[string]int64
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		partial, err := hasPartial(dir)
		if err != nil {
			return nil, err
		}
		complete, err := listComplete(dir)
		if err != nil {
			return nil, err
		}
		fresh := make(map[string]int64)
		for name, size := range complete {
			if prev, ok := before[name]; !ok || prev != size {
				fresh[name] = size
			}
		}
		if !partial && len(fresh) > 0 && sameSizes(fresh, last) {
			names := make([]string, 0, len(fresh))
			for name := range fresh {
				names = append(names, name)
			}
			sort.Strings(names)
			return names, nil
		}
		last = fresh
	}
}

// listComplete maps the complete regular files in dir to their sizes.
func listComplete(dir string) (map[string]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	files := make(map[string]int64)
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || isPartial(name) || name == MetadataFile || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files[name] = info.Size()
	}
	return files, nil
}

func hasPartial(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if isPartial(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suf := range partialSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

func sameSizes(a, b map[string]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
