// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dataset-engine/internal/harvest"
	"github.com/pdiddy/dataset-engine/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and edit the download history",
	Long: `History manages the record of downloads kept in the download root
(history.db). Successful references are skipped by later runs; removing a
record makes the next run download the reference again.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s history.Store) error {
			recs, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No downloads recorded.")
				return nil
			}
			printHistory(os.Stdout, recs)
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print one history record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s history.Store) error {
			rec, err := s.Get(cmd.Context(), args[0])
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no history record for %q", args[0])
			}
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(rec); err != nil {
				return err
			}
			return enc.Close()
		})
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove <key>...",
	Short: "Forget history records so the references download again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s history.Store) error {
			for _, key := range args {
				if err := s.Remove(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Printf("removed %s\n", key)
			}
			return s.Flush(cmd.Context())
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history as YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := harvest.ParseFormat(mustString(cmd, "format"))
		if err != nil {
			return err
		}
		return withHistory(func(s history.Store) error {
			var w io.Writer = os.Stdout
			if out := mustString(cmd, "out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if format == harvest.FormatJSON {
				return history.ExportJSON(cmd.Context(), s, w)
			}
			return history.ExportYAML(cmd.Context(), s, w)
		})
	},
}

func init() {
	historyExportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	historyExportCmd.Flags().String("out", "", "write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRemoveCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

// withHistory opens the durable store under the download root. Unlike the
// download path it does not fall back to memory: editing a history that
// cannot be opened is an error.
func withHistory(fn func(history.Store) error) error {
	s, err := history.Open(engineCfg.Download.Dir)
	if err != nil {
		return fmt.Errorf("opening history in %s: %w", engineCfg.Download.Dir, err)
	}
	defer s.Close()
	return fn(s)
}
