// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dataset-engine/internal/classify"
	"github.com/pdiddy/dataset-engine/internal/download"
	"github.com/pdiddy/dataset-engine/internal/harvest"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

const dateLayout = "2006-01-02"

var downloadCmd = &cobra.Command{
	Use:   "download [urls or DOIs...]",
	Short: "Download dataset references",
	Long: `Download fetches dataset references into the download root, one
directory per reference. References come from the arguments (URLs or bare
DOIs) and from a reference file written by extract (--refs).

Each reference is routed to the strategy chain of its repository. References
that already succeeded in an earlier run are skipped unless --force is set.
The command exits non-zero when any reference failed.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().String("refs", "", "reference file (YAML or JSON) written by extract")
	downloadCmd.Flags().String("report", "", "write the batch result to this file (YAML or JSON by extension)")
	addBatchFlags(downloadCmd)

	rootCmd.AddCommand(downloadCmd)
}

// addBatchFlags registers the filter and pool flags shared by download and
// harvest.
func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("force", false, "re-download references that already succeeded")
	cmd.Flags().Int("workers", 0, "concurrent downloads (default from config, 4)")
	cmd.Flags().StringSlice("data-type", nil, "keep references of these data types (aliases expand)")
	cmd.Flags().StringSlice("repository", nil, "keep references from these repositories or source hosts")
	cmd.Flags().Int("max", 0, "download at most this many references after filtering")
	cmd.Flags().String("since", "", "keep references from papers published on or after YYYY-MM-DD")
	cmd.Flags().String("until", "", "keep references from papers published on or before YYYY-MM-DD")
}

func filtersFromFlags(cmd *cobra.Command) (download.Filters, error) {
	f := download.Filters{Force: engineCfg.Download.Force}
	if force, _ := cmd.Flags().GetBool("force"); force {
		f.Force = true
	}
	f.DataTypes, _ = cmd.Flags().GetStringSlice("data-type")
	f.Repositories, _ = cmd.Flags().GetStringSlice("repository")
	f.MaxCount, _ = cmd.Flags().GetInt("max")

	var err error
	if f.Since, err = dateFlag(cmd, "since"); err != nil {
		return f, err
	}
	if f.Until, err = dateFlag(cmd, "until"); err != nil {
		return f, err
	}
	if !f.Until.IsZero() {
		// Inclusive of the whole day.
		f.Until = f.Until.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	refs := make([]types.DatasetReference, 0, len(args))
	for _, a := range args {
		ref, err := referenceFromArg(a)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	if path, _ := cmd.Flags().GetString("refs"); path != "" {
		fromFile, err := harvest.ReadReferences(path)
		if err != nil {
			return err
		}
		refs = append(refs, fromFile...)
	}
	if len(refs) == 0 {
		return fmt.Errorf("provide dataset URLs or DOIs, or a reference file with --refs")
	}

	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	eng, err := newEngine(engineCfg, workers)
	if err != nil {
		return err
	}
	defer eng.Close()

	batch := eng.dispatcher.DownloadMany(cmd.Context(), refs, filters)
	printBatch(os.Stdout, batch)

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := writeReport(path, batch); err != nil {
			return err
		}
	}
	if batch.HasFailures() {
		return fmt.Errorf("%d reference(s) failed download", batch.Failed)
	}
	return nil
}

// referenceFromArg turns a URL or bare DOI into a reference.
func referenceFromArg(arg string) (types.DatasetReference, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "10.") {
		u := "https://doi.org/" + arg
		return types.DatasetReference{
			Name:       "Dataset DOI: " + arg,
			URL:        u,
			DOI:        arg,
			Repository: classify.Classify(u, ""),
		}, nil
	}
	u, err := url.Parse(arg)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.DatasetReference{}, fmt.Errorf("%q is neither an http(s) URL nor a DOI", arg)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	return types.DatasetReference{
		Name:       name,
		URL:        arg,
		Repository: classify.Classify(arg, ""),
	}, nil
}

func writeReport(path string, batch types.BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := harvest.WriteBatch(f, batch, harvest.FormatFor(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
