package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vitis-cat/reconcile-cli/internal/aggregate"
	"github.com/vitis-cat/reconcile-cli/internal/pipeline"
	"github.com/vitis-cat/reconcile-cli/internal/report"
	"github.com/vitis-cat/reconcile-cli/internal/session"
)

var checkFlags reconcileFlags

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Reconcile grouped weights per producer code and tax id against the eRVC",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(cmd.Name()); err != nil {
			return err
		}
		in, err := checkFlags.inputs()
		if err != nil {
			return err
		}

		s := session.New(cfg)
		defer s.Close() //nolint:errcheck

		if err := prepare(cmd.OutOrStdout(), s, in); err != nil {
			return err
		}
		res, data, err := s.Check()
		if err != nil {
			return eris.Wrap(err, "check: reconcile")
		}
		path, err := writeOutput(outputDir(checkFlags.out), report.GroupedFileName, data)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		printAggregate(w, res)
		fmt.Fprintf(w, "report: %s\n", path)
		return nil
	},
}

// prepare cleans and enriches the declarations and loads the registry into s.
func prepare(w io.Writer, s *session.Session, in pipeline.Inputs) error {
	var (
		e   *pipeline.Enriched
		err error
	)
	if in.Raw {
		e, err = s.Enrich(in.Extranet, in.Master)
	} else {
		e, err = cleanAndEnrich(w, s, in)
	}
	if err != nil {
		return eris.Wrapf(err, "enrich %s", in.Extranet.Name)
	}
	n, err := s.SetRegistry(in.Registry)
	if err != nil {
		return eris.Wrapf(err, "load registry %s", in.Registry.Name)
	}
	printEnriched(w, e)
	fmt.Fprintf(w, "registry rows in scope: %d\n", n)
	return nil
}

func cleanAndEnrich(w io.Writer, s *session.Session, in pipeline.Inputs) (*pipeline.Enriched, error) {
	before, err := s.Analyze(in.Extranet)
	if err != nil {
		return nil, err
	}
	after, err := s.Correct()
	if err != nil {
		return nil, err
	}
	printCleaning(w, &pipeline.Cleaning{Before: before, After: after})
	return s.EnrichCorrected(in.Master)
}

func printCleaning(w io.Writer, c *pipeline.Cleaning) {
	fmt.Fprintf(w, "cleaning: %d error rows before corrections, %d after\n", c.Before.Total, c.After.Total)
}

func printEnriched(w io.Writer, e *pipeline.Enriched) {
	fmt.Fprintf(w, "declarations: %d loaded, %d excluded by zone, %d resolved, %d unresolved\n",
		e.Loaded, e.ZoneExcluded, e.Resolver.Resolved(), e.Resolver.Unresolved)
	for _, c := range e.Distribution {
		code := c.Code
		if code == "" {
			code = "(unresolved)"
		}
		fmt.Fprintf(w, "  %-12s %d\n", code, c.Rows)
	}
}

func printAggregate(w io.Writer, res *aggregate.Result) {
	for _, n := range res.Notices {
		fmt.Fprintf(w, "notice: %s\n", n)
	}
	ps, ts := res.ProducerSummary(), res.TaxIDSummary()
	fmt.Fprintf(w, "producer codes: %d, weight incidents: %d, date incidents: %d, total difference: %s kg\n",
		ps.Codes, ps.WeightIncidents, ps.DateIncidents, ps.TotalDifference)
	fmt.Fprintf(w, "tax ids: %d, date incidents: %d, total difference: %s kg\n",
		ts.TaxIDs, ts.DateIncidents, ts.TotalDifference)
}

func init() {
	checkFlags.register(checkCmd)
	rootCmd.AddCommand(checkCmd)
}
