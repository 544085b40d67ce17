// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

func TestNewFetchContext_Defaults(t *testing.T) {
	f, err := NewFetchContext(types.HTTPConfig{}, map[string]string{"zenodo-token": "z"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, f.Timeout)
	assert.Equal(t, DefaultUserAgent, f.UserAgent)
	assert.Equal(t, DefaultBrowserUserAgent, f.BrowserUserAgent)
	assert.Equal(t, "z", f.Token("zenodo-token"))
	assert.Empty(t, f.Token("missing"))
}

func TestNewFetchContext_BadProxy(t *testing.T) {
	_, err := NewFetchContext(types.HTTPConfig{Proxy: "://bad"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy")
}

func TestGetJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"id": 7, "title": "x"}`))
	}))
	defer ts.Close()

	var v struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, NewTestFetchContext(ts.Client()).GetJSON(context.Background(), ts.URL, nil, &v))
	assert.Equal(t, 7, v.ID)
	assert.Equal(t, "x", v.Title)
}

func TestGetJSON_BadBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer ts.Close()

	var v map[string]any
	err := NewTestFetchContext(ts.Client()).GetJSON(context.Background(), ts.URL, nil, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing response")
}

func TestPerHostRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	f, err := NewFetchContext(types.HTTPConfig{RatePerHost: 20}, nil, nil)
	require.NoError(t, err)
	f.Client = ts.Client()

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := f.Get(context.Background(), ts.URL, nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	// Burst of one at 20/s: the second and third requests wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "https://zenodo.org/", Origin("https://zenodo.org/records/1?x=2"))
	assert.Equal(t, "", Origin("not a url"))
}
