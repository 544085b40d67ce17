// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/classify"
	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/strategy"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url or accession> [link text]",
	Short: "Print the repository tag and strategy chain for a URL",
	Long: `Classify runs the repository classifier over a URL (and optional link
text) and prints the tag together with the strategies the downloader would
try, in order. A bare accession number is mapped to its database.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])
	text := ""
	if len(args) == 2 {
		text = args[1]
	}

	var tag types.RepositoryTag
	if isURL(target) {
		tag = classify.Classify(target, text)
	} else {
		var u string
		tag, u = classify.AccessionDatabase(strings.ToUpper(target))
		if u != "" {
			fmt.Printf("url:        %s\n", u)
		}
	}

	fetch, err := httputil.NewFetchContext(engineCfg.Download.HTTPConfig, nil, logger)
	if err != nil {
		return err
	}
	var b strategy.Browser
	if engineCfg.Browser.Enabled {
		b = strategy.NewChrome(engineCfg.Browser, fetch.BrowserUserAgent, logger)
	}
	reg := strategy.NewRegistry(fetch, b, engineCfg.Browser)
	fmt.Printf("repository: %s\n", tag)
	fmt.Printf("strategies: %s\n", strings.Join(strategy.Names(reg.Resolve(tag)), " -> "))
	return nil
}
