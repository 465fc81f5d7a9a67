package cmd

import (
	"errors"
	"io/fs"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/trace"
)

// defaultsFilePath is the run configuration read when --config is not given.
const defaultsFilePath = "defaults.yaml"

// loadBundle reads the run configuration at path with strict field checking.
// A missing file falls back to sim.DefaultBundle unless the path was given
// explicitly.
func loadBundle(path string, explicit bool) (*sim.Bundle, error) {
	b, err := sim.LoadBundle(path)
	if err == nil {
		logrus.Debugf("Loaded configuration from %s", path)
		return b, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		logrus.Debugf("No configuration at %s, using defaults", path)
		d := sim.DefaultBundle()
		return &d, nil
	}
	return nil, err
}

// applyRunOverrides copies the flags the user set onto b. Flags left at their
// defaults never overwrite values from the configuration file.
func applyRunOverrides(cmd *cobra.Command, b *sim.Bundle) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		b.Seed = seed
	}
	if flags.Changed("strategy") {
		b.Selection.Strategy = strategyName
	}
	if flags.Changed("top-n") {
		b.Selection.TopN = topN
	}
	if flags.Changed("cull-rate") {
		b.Selection.CullRate = cullRate
	}
	if flags.Changed("victory-threshold") {
		b.Selection.VictoryThreshold = victoryThreshold
	}
	if flags.Changed("trace") {
		b.Trace.Level = trace.TraceLevel(traceLevel)
	}
}
