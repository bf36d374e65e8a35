package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vitis-cat/reconcile-cli/internal/match"
	"github.com/vitis-cat/reconcile-cli/internal/report"
	"github.com/vitis-cat/reconcile-cli/internal/session"
)

var matchFlags reconcileFlags

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match each declaration row against eRVC weighings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(cmd.Name()); err != nil {
			return err
		}
		in, err := matchFlags.inputs()
		if err != nil {
			return err
		}

		s := session.New(cfg)
		defer s.Close() //nolint:errcheck

		if err := prepare(cmd.OutOrStdout(), s, in); err != nil {
			return err
		}
		res, data, err := s.Match()
		if err != nil {
			return eris.Wrap(err, "match: classify")
		}
		path, err := writeOutput(outputDir(matchFlags.out), report.MatchesFileName, data)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		printMatches(w, res.Stats)
		fmt.Fprintf(w, "report: %s\n", path)
		return nil
	},
}

func printMatches(w io.Writer, s match.Stats) {
	fmt.Fprintf(w, "processed: %d, exact: %d, grade mismatch: %d, weight approximate: %d, unmatched: %d, success rate: %.1f%%\n",
		s.Processed, s.Exact, s.GradeMismatch, s.WeightApprox, s.Unmatched, s.SuccessRate()*100)
}

func init() {
	matchFlags.register(matchCmd)
	rootCmd.AddCommand(matchCmd)
}
