package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/report"
	"github.com/breeding-sim/breeding-sim/sim/session"
	"github.com/breeding-sim/breeding-sim/sim/store"
)

// advanceOptions controls how a population is advanced and printed.
type advanceOptions struct {
	Generations   int
	Verbose       bool
	StopOnVictory bool
	PedigreeDepth int                // 0 skips the pedigree of the fittest mouse
	Metrics       *report.RunMetrics // nil disables metrics
}

// currentAdvanceOptions reads the population flags. Metrics are collected
// when --metrics-file is set.
func currentAdvanceOptions() advanceOptions {
	opts := advanceOptions{Generations: generations, Verbose: verbose, StopOnVictory: stopOnVictory, PedigreeDepth: pedigreeDepth}
	if metricsFile != "" {
		opts.Metrics = report.NewRunMetrics()
	}
	return opts
}

// writeMetrics writes the collected metrics to --metrics-file.
func writeMetrics(opts advanceOptions) error {
	if opts.Metrics == nil {
		return nil
	}
	if err := opts.Metrics.WriteTextfile(metricsFile); err != nil {
		return fmt.Errorf("write metrics %s: %w", metricsFile, err)
	}
	return nil
}

// minRunSize is the smallest founder count that can produce a breeding pair.
const minRunSize = 2

// checkRunSize rejects founder counts that could never breed.
func checkRunSize(size int) error {
	if size < minRunSize {
		return fmt.Errorf("population size must be at least %d, got %d", minRunSize, size)
	}
	return nil
}

// runPopulation creates a population in sess and advances it.
func runPopulation(ctx context.Context, w io.Writer, sess *session.Session, b *sim.Bundle, req session.PopulationRequest, opts advanceOptions) (report.History, error) {
	if err := checkRunSize(req.Size); err != nil {
		return report.History{}, err
	}
	id, pop, err := sess.CreatePopulation(ctx, req)
	if err != nil {
		return report.History{}, err
	}
	logrus.Infof("Population %s: %d founders, goal %s", id, pop.Size(), pop.Goal)
	return advancePopulation(ctx, w, sess, b, id, pop, opts)
}

// advancePopulation advances pop for opts.Generations generations, printing a
// summary of each one followed by the initial versus final comparison.
func advancePopulation(ctx context.Context, w io.Writer, sess *session.Session, b *sim.Bundle, id string, pop *sim.Population, opts advanceOptions) (report.History, error) {
	threshold := b.Selection.VictoryThreshold
	victory := pop.CheckVictory(threshold)
	initial := pop.History[len(pop.History)-1]
	report.RenderSummary(w, initial, victory, opts.Verbose)
	if opts.Metrics != nil {
		opts.Metrics.Observe(id, initial, victory)
	}

	for g := 0; g < opts.Generations; g++ {
		if victory && opts.StopOnVictory {
			logrus.Infof("Goal reached at generation %d", pop.Generation)
			break
		}
		snap, err := sess.Advance(ctx, id, b.Selection.Strategy, b.Selection.CullRate)
		if err != nil {
			return report.History{}, fmt.Errorf("generation %d: %w", pop.Generation+1, err)
		}
		victory = pop.CheckVictory(threshold)
		report.RenderSummary(w, snap, victory, opts.Verbose)
		if opts.Metrics != nil {
			opts.Metrics.Observe(id, snap, victory)
		}
	}

	fmt.Fprintln(w)
	if err := report.RenderComparison(w, pop.History); err != nil {
		return report.History{}, err
	}
	h := report.NewHistory(b.Seed, pop, b.Selection.Strategy, b.Selection.CullRate, victory)
	if h.Trace != nil {
		fmt.Fprintln(w)
		report.RenderTraceSummary(w, h.Trace)
	}
	if opts.PedigreeDepth > 0 && pop.Size() > 0 {
		best := sim.RankByFitness(pop.Mice(), pop.Goal)[0]
		ped, err := sess.Pedigree(best.ID, opts.PedigreeDepth)
		if err != nil {
			return report.History{}, err
		}
		fmt.Fprintln(w)
		report.RenderPedigree(w, ped.Tree, ped.Ancestors)
	}
	return h, nil
}

// openStore opens the backend named by --store. An empty backend disables
// persistence and returns a nil store.
func openStore(ctx context.Context) (store.Store, error) {
	if storeBackend == "" {
		return nil, nil
	}
	if !store.IsValidBackend(storeBackend) {
		return nil, fmt.Errorf("unknown store backend %q", storeBackend)
	}
	return store.NewStore(ctx, storeBackend, storeDSN)
}

// historySinks returns the export destinations named by the export flags.
func historySinks(ctx context.Context) ([]report.Sink, error) {
	var sinks []report.Sink
	if exportDir != "" {
		sinks = append(sinks, report.DirSink{Dir: exportDir})
	}
	if s3Bucket != "" {
		s3, err := report.NewS3Sink(ctx, report.S3Config{
			Bucket:          s3Bucket,
			Prefix:          s3Prefix,
			Region:          s3Region,
			Endpoint:        s3Endpoint,
			AccessKeyID:     s3AccessKey,
			SecretAccessKey: s3SecretKey,
			PathStyle:       s3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3)
	}
	return sinks, nil
}

// exportHistory writes h as name.yaml and name.json to every configured sink.
func exportHistory(ctx context.Context, name string, h report.History) error {
	sinks, err := historySinks(ctx)
	if err != nil {
		return err
	}
	for _, s := range sinks {
		if err := report.ExportHistory(ctx, s, name, h); err != nil {
			return err
		}
	}
	if len(sinks) > 0 {
		logrus.Infof("Exported %s to %d destination(s)", name, len(sinks))
	}
	return nil
}
