// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Defaults applied by NewFetchContext when the configuration leaves a
// field empty.
const (
	DefaultTimeout          = 60 * time.Second
	DefaultUserAgent        = "dataset-engine/0.1"
	DefaultBrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

// FetchContext carries everything a strategy needs to talk to the network:
// the client, timeouts, user agents, per-host politeness limits and API
// tokens. One is built per batch and passed explicitly.
type FetchContext struct {
	Client           *http.Client
	Timeout          time.Duration
	UserAgent        string
	BrowserUserAgent string
	Log              logging.Logger

	tokens  map[string]string
	perHost rate.Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetchContext builds a FetchContext from cfg. tokens maps secret names
// (e.g. "zenodo-token") to values.
func NewFetchContext(cfg types.HTTPConfig, tokens map[string]string, log logging.Logger) (*FetchContext, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	if cfg.Proxy != "" {
		pu, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(pu)
	}

	f := &FetchContext{
		// No client-wide timeout: bodies of large files may stream for
		// longer than a single request is allowed to wait for headers.
		Client:           &http.Client{Transport: transport},
		Timeout:          timeout,
		UserAgent:        orDefault(cfg.UserAgent, DefaultUserAgent),
		BrowserUserAgent: orDefault(cfg.BrowserUserAgent, DefaultBrowserUserAgent),
		Log:              logging.OrNop(log),
		tokens:           tokens,
		limiters:         make(map[string]*rate.Limiter),
	}
	if cfg.RatePerHost > 0 {
		f.perHost = rate.Limit(cfg.RatePerHost)
	}
	return f, nil
}

// NewTestFetchContext wraps client with short timeouts and no rate limit.
func NewTestFetchContext(client *http.Client) *FetchContext {
	return &FetchContext{
		Client:           client,
		Timeout:          5 * time.Second,
		UserAgent:        DefaultUserAgent,
		BrowserUserAgent: DefaultBrowserUserAgent,
		Log:              logging.NewNop(),
		limiters:         make(map[string]*rate.Limiter),
	}
}

// WithTokens returns a copy of f that sends the given API tokens.
func (f *FetchContext) WithTokens(tokens map[string]string) *FetchContext {
	return &FetchContext{
		Client:           f.Client,
		Timeout:          f.Timeout,
		UserAgent:        f.UserAgent,
		BrowserUserAgent: f.BrowserUserAgent,
		Log:              f.Log,
		tokens:           tokens,
		perHost:          f.perHost,
		limiters:         make(map[string]*rate.Limiter),
	}
}

// Token returns the named API token, or "".
func (f *FetchContext) Token(name string) string {
	return f.tokens[name]
}

// wait blocks until the per-host limiter admits a request to host.
func (f *FetchContext) wait(ctx context.Context, host string) error {
	if f.perHost == 0 {
		return nil
	}
	f.mu.Lock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(f.perHost, 1)
		f.limiters[host] = lim
	}
	f.mu.Unlock()
	return lim.Wait(ctx)
}

// Get issues a GET for rawURL with the API user agent plus hdr. A non-2xx
// response is drained, closed and returned as *StatusError.
func (f *FetchContext) Get(ctx context.Context, rawURL string, hdr http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	for k, vs := range hdr {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if err := f.wait(ctx, req.URL.Host); err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}
	return resp, nil
}

// GetJSON fetches rawURL and decodes the body into v, bounded by f.Timeout.
func (f *FetchContext) GetJSON(ctx context.Context, rawURL string, hdr http.Header, v any) error {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	if hdr == nil {
		hdr = http.Header{}
	}
	if hdr.Get("Accept") == "" {
		hdr.Set("Accept", "application/json")
	}
	resp, err := f.Get(ctx, rawURL, hdr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response from %s: %w", rawURL, err)
	}
	return nil
}

// BrowserHeaders returns headers that make a request look like a browser
// navigation from referer.
func (f *FetchContext) BrowserHeaders(referer string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", f.BrowserUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}

// Origin returns scheme://host of rawURL, or "" if it cannot be parsed.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
