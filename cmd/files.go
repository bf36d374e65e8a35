package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitis-cat/reconcile-cli/internal/pipeline"
)

// reconcileFlags are the three uploads shared by check, match and run.
type reconcileFlags struct {
	extranet string
	bbdd     string
	ervc     string
	out      string
	raw      bool
}

func (f *reconcileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.extranet, "extranet", "", "path to the Extranet declaration export (required)")
	cmd.Flags().StringVar(&f.bbdd, "bbdd", "", "path to the BBDD producer master workbook (required)")
	cmd.Flags().StringVar(&f.ervc, "ervc", "", "path to the eRVC registry export, xlsx or csv (required)")
	cmd.Flags().StringVar(&f.out, "out", "", "output directory (default: output.dir)")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "reconcile the export as uploaded, without automatic corrections")
	_ = cmd.MarkFlagRequired("extranet")
	_ = cmd.MarkFlagRequired("bbdd")
	_ = cmd.MarkFlagRequired("ervc")
}

func (f *reconcileFlags) inputs() (pipeline.Inputs, error) {
	var (
		in  = pipeline.Inputs{Raw: f.raw}
		err error
	)
	if in.Extranet, err = readInput(f.extranet); err != nil {
		return in, err
	}
	if in.Master, err = readInput(f.bbdd); err != nil {
		return in, err
	}
	if in.Registry, err = readInput(f.ervc); err != nil {
		return in, err
	}
	return in, nil
}

// readInput loads an upload from disk, named by its base name.
func readInput(path string) (pipeline.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Input{}, eris.Wrapf(err, "read %s", path)
	}
	return pipeline.Input{Name: filepath.Base(path), Data: data}, nil
}

// outputDir picks the flag value over the configured directory.
func outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg != nil && cfg.Output.Dir != "" {
		return cfg.Output.Dir
	}
	return "."
}

// writeOutput stores data as dir/name and returns the written path.
func writeOutput(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "create output dir %s", dir)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "write %s", path)
	}
	zap.L().Info("output written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
