// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/extract"
	"github.com/pdiddy/dataset-engine/internal/harvest"
	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files or URLs...]",
	Short: "Find dataset references in articles",
	Long: `Extract scans article HTML, plain text or PDF files (chosen by
extension) and article URLs for dataset references: repository links, DOIs,
accession numbers and supplementary material. References are deduplicated
across inputs and written as YAML or JSON for the download command.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("base-url", "", "article URL used to resolve relative links in local HTML files")
	extractCmd.Flags().String("title", "", "source paper title recorded on each reference")
	extractCmd.Flags().String("doi", "", "source paper DOI recorded on each reference")
	extractCmd.Flags().String("supplementary-url", "", "supplementary URL reported when an input yields nothing")
	extractCmd.Flags().String("format", "yaml", "output format: yaml or json")
	extractCmd.Flags().String("out", "", "write references to this file instead of stdout")
	extractCmd.Flags().Bool("table", false, "print a table instead of YAML/JSON")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more article files or URLs")
	}
	format, err := harvest.ParseFormat(mustString(cmd, "format"))
	if err != nil {
		return err
	}

	e, err := extract.FromConfig(engineCfg.Extraction, logger)
	if err != nil {
		return err
	}
	if u := mustString(cmd, "supplementary-url"); u != "" {
		e = e.WithSupplementaryURL(u)
	}

	var fetch *httputil.FetchContext
	var refs []types.DatasetReference
	for _, arg := range args {
		src := types.SourceDocument{
			Title: mustString(cmd, "title"),
			URL:   mustString(cmd, "base-url"),
			DOI:   mustString(cmd, "doi"),
		}

		if isURL(arg) {
			if fetch == nil {
				if fetch, err = httputil.NewFetchContext(engineCfg.Download.HTTPConfig, loadedSecrets, logger); err != nil {
					return err
				}
			}
			page, err := harvest.FetchPage(cmd.Context(), fetch, arg)
			if err != nil {
				logger.Warn("fetching article", logging.String("url", arg), logging.Err(err))
				continue
			}
			src.URL = arg
			refs = append(refs, e.FromHTML(cmd.Context(), strings.NewReader(page), arg, src)...)
			continue
		}

		found, err := extractFile(cmd, e, arg, src)
		if err != nil {
			return err
		}
		refs = append(refs, found...)
	}
	refs = extract.Dedup(refs)
	logger.Info("extraction finished", logging.Int("inputs", len(args)), logging.Int("references", len(refs)))

	if table, _ := cmd.Flags().GetBool("table"); table {
		printReferences(os.Stdout, refs)
		return nil
	}

	var w io.Writer = os.Stdout
	if out := mustString(cmd, "out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
		format = harvest.FormatFor(out)
	}
	return harvest.WriteReferences(w, refs, format)
}

func extractFile(cmd *cobra.Command, e *extract.Extractor, path string, src types.SourceDocument) ([]types.DatasetReference, error) {
	if src.Title == "" {
		src.Title = filepath.Base(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.FromPDF(cmd.Context(), path, src)
	case ".html", ".htm", ".xhtml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		return e.FromHTML(cmd.Context(), f, src.URL, src), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return e.FromText(string(data), src), nil
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func mustString(cmd *cobra.Command, name string) string {
	s, _ := cmd.Flags().GetString(name)
	return s
}
