// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/extract"
	"github.com/pdiddy/dataset-engine/internal/harvest"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest <papers.yaml>",
	Short: "Extract and download datasets for collector paper records",
	Long: `Harvest reads paper records (YAML or JSON) handed over by a collector,
extracts dataset references from each paper's HTML, text or PDF (fetching
the article page when only a URL is known), and downloads the references
that pass the filters.`,
	Args: cobra.ExactArgs(1),
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().Bool("fetch", true, "fetch article pages for papers that carry only a URL")
	harvestCmd.Flags().String("refs-out", "", "also write the extracted references to this file")
	harvestCmd.Flags().String("report", "", "write the batch result to this file (YAML or JSON by extension)")
	addBatchFlags(harvestCmd)

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	papers, err := harvest.LoadPapers(args[0])
	if err != nil {
		return err
	}
	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	e, err := extract.FromConfig(engineCfg.Extraction, logger)
	if err != nil {
		return err
	}
	eng, err := newEngine(engineCfg, workers)
	if err != nil {
		return err
	}
	defer eng.Close()

	p := &harvest.Pipeline{Extractor: e, Dispatcher: eng.dispatcher, Log: logger}
	if fetch, _ := cmd.Flags().GetBool("fetch"); fetch {
		p.Fetch = eng.fetch
	}

	refs := p.References(cmd.Context(), papers)
	fmt.Fprintf(os.Stdout, "%d paper(s), %d reference(s)\n", len(papers), len(refs))

	if out := mustString(cmd, "refs-out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		werr := harvest.WriteReferences(f, refs, harvest.FormatFor(out))
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return werr
		}
	}

	batch := eng.dispatcher.DownloadMany(cmd.Context(), refs, filters)
	printBatch(os.Stdout, batch)

	if path := mustString(cmd, "report"); path != "" {
		if err := writeReport(path, batch); err != nil {
			return err
		}
	}
	if batch.HasFailures() {
		return fmt.Errorf("%d reference(s) failed download", batch.Failed)
	}
	return nil
}
