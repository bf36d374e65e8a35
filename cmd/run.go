package main

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vitis-cat/reconcile-cli/internal/pipeline"
	"github.com/vitis-cat/reconcile-cli/internal/report"
)

var runFlags reconcileFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clean and enrich once, then run record matching and grouped reconciliation in parallel",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(cmd.Name()); err != nil {
			return err
		}
		in, err := runFlags.inputs()
		if err != nil {
			return err
		}

		res, err := pipeline.New(cfg).Run(cmd.Context(), in)
		if err != nil {
			return eris.Wrapf(err, "run %s", in.Extranet.Name)
		}

		dir := outputDir(runFlags.out)
		var summary bytes.Buffer
		if err := res.WriteSummary(&summary); err != nil {
			return err
		}
		paths := make([]string, 0, 3)
		for _, out := range []struct {
			name string
			data []byte
		}{
			{report.GroupedFileName, res.GroupedReport},
			{report.MatchesFileName, res.MatchReport},
			{pipeline.SummaryFileName, summary.Bytes()},
		} {
			path, err := writeOutput(dir, out.name, out.data)
			if err != nil {
				return err
			}
			paths = append(paths, path)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "run %s\n", res.RunID)
		if res.Cleaning != nil {
			printCleaning(w, res.Cleaning)
		}
		printEnriched(w, res.Enriched)
		printMatches(w, res.Matches.Stats)
		printAggregate(w, res.Aggregate)
		for _, p := range paths {
			fmt.Fprintf(w, "written: %s\n", p)
		}
		return nil
	},
}

func init() {
	runFlags.register(runCmd)
	rootCmd.AddCommand(runCmd)
}
