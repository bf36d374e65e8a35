package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vitis-cat/reconcile-cli/internal/cleaner"
	"github.com/vitis-cat/reconcile-cli/internal/report"
	"github.com/vitis-cat/reconcile-cli/internal/session"
)

var (
	verifyFile    string
	verifyOut     string
	verifyLedgers bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Analyze an Extranet declaration, apply corrections and write the corrected copy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(cmd.Name()); err != nil {
			return err
		}

		in, err := readInput(verifyFile)
		if err != nil {
			return err
		}

		s := session.New(cfg)
		defer s.Close() //nolint:errcheck

		before, err := s.Analyze(in)
		if err != nil {
			return eris.Wrapf(err, "verify: analyze %s", in.Name)
		}
		after, err := s.Correct()
		if err != nil {
			return eris.Wrapf(err, "verify: correct %s", in.Name)
		}
		data, name, err := s.Download()
		if err != nil {
			return eris.Wrapf(err, "verify: generate %s", in.Name)
		}

		dir := outputDir(verifyOut)
		path, err := writeOutput(dir, name, data)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		printLedger(w, "before corrections", before)
		printLedger(w, "after corrections", after)
		fmt.Fprintf(w, "corrected copy: %s\n", path)

		if verifyLedgers {
			ledgers, err := s.Ledgers()
			if err != nil {
				return eris.Wrap(err, "verify: render ledgers")
			}
			path, err := writeOutput(dir, report.LedgerFileName, ledgers)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "error ledgers: %s\n", path)
		}
		return nil
	},
}

func printLedger(w io.Writer, label string, s cleaner.LedgerSummary) {
	fmt.Fprintf(w, "%s: %d error rows, %d verifiers, %d correctable, %d to remove\n",
		label, s.Total, s.Producers, s.Correctable, s.ZeroWeight)
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "path to the Extranet declaration export (required)")
	verifyCmd.Flags().StringVar(&verifyOut, "out", "", "output directory (default: output.dir)")
	verifyCmd.Flags().BoolVar(&verifyLedgers, "ledgers", false, "also write the error ledgers workbook")
	_ = verifyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(verifyCmd)
}
