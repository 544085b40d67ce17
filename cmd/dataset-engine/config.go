// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/dataset-engine/internal/download"
	"github.com/pdiddy/dataset-engine/internal/history"
	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/strategy"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// envKeyReplacer maps nested keys such as download.workers onto
// DATASET_ENGINE_DOWNLOAD_WORKERS.
var envKeyReplacer = strings.NewReplacer(".", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("secrets_dir", ".secrets/")

	v.SetDefault("download.dir", "datasets")
	v.SetDefault("download.workers", download.DefaultWorkers)
	v.SetDefault("download.max_attempts", 3)
	v.SetDefault("download.retry_delay", 2*time.Second)
	v.SetDefault("download.item_timeout", download.DefaultItemTimeout)
	v.SetDefault("download.timeout", httputil.DefaultTimeout)
	v.SetDefault("download.user_agent", httputil.DefaultUserAgent)
	v.SetDefault("download.browser_user_agent", httputil.DefaultBrowserUserAgent)
	v.SetDefault("download.rate_per_host", 2.0)

	v.SetDefault("browser.enabled", false)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", strategy.DefaultBrowserTimeout)
	v.SetDefault("browser.poll_interval", strategy.DefaultPollInterval)
	v.SetDefault("browser.max_clicks", strategy.DefaultMaxClicks)

	v.SetDefault("log.level", "info")
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (types.EngineConfig, error) {
	var cfg types.EngineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// engine bundles what the download-side commands need.
type engine struct {
	fetch      *httputil.FetchContext
	registry   *strategy.Registry
	dispatcher *download.Dispatcher
	store      history.Store
}

func (e *engine) Close() error { return e.store.Close() }

// newEngine wires the fetch context, strategy registry, history store and
// dispatcher from cfg. workers overrides the configured pool size when > 0.
func newEngine(cfg types.EngineConfig, workers int) (*engine, error) {
	fetch, err := httputil.NewFetchContext(cfg.Download.HTTPConfig, loadedSecrets, logger)
	if err != nil {
		return nil, err
	}

	var b strategy.Browser
	if cfg.Browser.Enabled {
		b = strategy.NewChrome(cfg.Browser, fetch.BrowserUserAgent, logger)
	}
	reg := strategy.NewRegistry(fetch, b, cfg.Browser)

	store := history.OpenOrMemory(cfg.Download.Dir, logger)

	opts := download.OptionsFromConfig(cfg.Download, logger)
	if workers > 0 {
		opts.Workers = workers
	}
	return &engine{
		fetch:      fetch,
		registry:   reg,
		dispatcher: download.New(reg, store, opts),
		store:      store,
	}, nil
}
