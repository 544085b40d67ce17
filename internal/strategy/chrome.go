// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Chrome is a Browser backed by a headless Chrome driven over the DevTools
// protocol. Each Download call starts and stops its own browser process.
type Chrome struct {
	cfg       types.BrowserConfig
	userAgent string
	log       logging.Logger
}

// NewChrome returns a Chrome browser. userAgent may be empty.
func NewChrome(cfg types.BrowserConfig, userAgent string, log logging.Logger) *Chrome {
	return &Chrome{cfg: cfg, userAgent: userAgent, log: logging.OrNop(log)}
}

func (c *Chrome) Download(ctx context.Context, pageURL, dir string, maxClicks int, wait func(context.Context) error) (PageInfo, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return PageInfo{}, fmt.Errorf("resolving %s: %w", dir, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", c.cfg.Headless))
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var info PageInfo
	if err := chromedp.Run(tabCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(absDir).
			WithEventsEnabled(true),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&info.FinalURL),
		chromedp.Title(&info.Title),
	); err != nil {
		return PageInfo{}, fmt.Errorf("loading %s: %w", pageURL, err)
	}

	clicked := make(map[cdp.NodeID]bool)
	for _, sel := range DownloadSelectors {
		if len(clicked) >= maxClicks {
			break
		}
		by := chromedp.ByQueryAll
		if sel.XPath {
			by = chromedp.BySearch
		}
		var nodes []*cdp.Node
		if err := chromedp.Run(tabCtx, chromedp.Nodes(sel.Query, &nodes, by, chromedp.AtLeast(0))); err != nil {
			c.log.Debug("selector failed", logging.String("selector", sel.Query), logging.Err(err))
			continue
		}
		for _, n := range nodes {
			if len(clicked) >= maxClicks {
				break
			}
			if clicked[n.NodeID] {
				continue
			}
			if err := chromedp.Run(tabCtx, chromedp.MouseClickNode(n)); err != nil {
				c.log.Debug("click failed", logging.String("selector", sel.Query), logging.Err(err))
				continue
			}
			clicked[n.NodeID] = true
		}
	}
	info.Clicked = len(clicked)
	if info.Clicked == 0 {
		return info, nil
	}

	if err := wait(tabCtx); err != nil {
		return info, err
	}
	return info, nil
}
