// Package report renders run results for the terminal and exports run
// history to a local directory or an S3 bucket.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/strain"
	"github.com/breeding-sim/breeding-sim/sim/trace"
	"github.com/breeding-sim/breeding-sim/sim/validation"
)

// comparisonMetrics are the rows of the initial/final comparison table.
var comparisonMetrics = []struct {
	label string
	value func(sim.Snapshot) float64
}{
	{"Avg Fitness (%)", func(s sim.Snapshot) float64 { return s.AvgFitness }},
	{"Mean F (pedigree)", func(s sim.Snapshot) float64 { return s.MeanFPedigree }},
	{"Mean F (genomic)", func(s sim.Snapshot) float64 { return s.MeanFGenomic }},
	{"Corr(F_ped, F_gen)", func(s sim.Snapshot) float64 { return s.CorrFPedigreeGenomic }},
	{"Mean G_ii", func(s sim.Snapshot) float64 { return s.MeanGii }},
	{"Heterozygosity (SNP)", func(s sim.Snapshot) float64 { return s.HeterozygositySNP }},
	{"Trait mean", func(s sim.Snapshot) float64 { return s.TraitMean }},
	{"Trait SD", func(s sim.Snapshot) float64 { return s.TraitSD }},
}

// RenderSummary writes the one-generation summary of a snapshot. Trait
// frequencies are listed when verbose is set.
func RenderSummary(w io.Writer, s sim.Snapshot, victory, verbose bool) {
	fmt.Fprintf(w, "Generation %d:\n", s.Generation)
	fmt.Fprintf(w, "  N=%d, Fitness=%.1f%%, F_ped=%.3f, F_gen=%.3f, Het_SNP=%.3f\n",
		s.PopulationSize, s.AvgFitness, s.MeanFPedigree, s.MeanFGenomic, s.HeterozygositySNP)
	fmt.Fprintf(w, "  Trait: mean=%.2f, SD=%.2f, h²=%.3f\n", s.TraitMean, s.TraitSD, s.H2Empirical)
	if verbose {
		fmt.Fprintln(w, "  Trait frequencies:")
		for _, trait := range sim.TraitNames() {
			freqs := s.TraitFrequencies[trait]
			labels := make([]string, 0, len(freqs))
			for l := range freqs {
				labels = append(labels, l)
			}
			sort.Strings(labels)
			parts := make([]string, len(labels))
			for i, l := range labels {
				parts[i] = fmt.Sprintf("%s %.1f%%", l, freqs[l])
			}
			fmt.Fprintf(w, "    %-12s %s\n", trait+":", strings.Join(parts, ", "))
		}
	}
	if victory {
		fmt.Fprintln(w, "  VICTORY! Breeding goal achieved!")
	}
}

// RenderComparison writes the initial versus final table of a run's history.
// Histories shorter than two snapshots render nothing.
func RenderComparison(w io.Writer, history []sim.Snapshot) error {
	if len(history) < 2 {
		return nil
	}
	initial, final := history[0], history[len(history)-1]
	fmt.Fprintf(w, "=== Strategy Comparison (generation %d) ===\n", final.Generation)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Metric\tInitial\tFinal\tChange\t")
	for _, m := range comparisonMetrics {
		a, b := m.value(initial), m.value(final)
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%+.3f\t\n", m.label, a, b, b-a)
	}
	return tw.Flush()
}

// RenderTraceSummary writes the aggregate of a mating trace.
func RenderTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Mating Trace Summary ===")
	fmt.Fprintf(w, "Total Matings        : %d\n", ts.TotalMatings)
	fmt.Fprintf(w, "Failed Matings       : %d\n", ts.FailedMatings)
	fmt.Fprintf(w, "Total Offspring      : %d\n", ts.TotalOffspring)
	fmt.Fprintf(w, "Unique Parents       : %d\n", ts.UniqueParents)
	fmt.Fprintf(w, "Mean Relatedness     : %.3f\n", ts.MeanRelatedness)
	fmt.Fprintf(w, "Max Relatedness      : %.3f\n", ts.MaxRelatedness)
	fmt.Fprintf(w, "Total Culled         : %d\n", ts.TotalCulled)
}

// RenderValidation writes one line per validation method and the verdict.
func RenderValidation(w io.Writer, rep *validation.Report) error {
	fmt.Fprintln(w, "=== Validation ===")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rep.Results {
		status := "FAIL"
		if r.Passed {
			status = "PASS"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Method, status, formatMetrics(r.Metrics))
		for _, n := range r.Notes {
			fmt.Fprintf(tw, "\t\t  note: %s\n", n)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	verdict := "FAILED"
	if rep.OverallPass {
		verdict = "PASSED"
	}
	fmt.Fprintf(w, "Overall: %d/%d passed (%s, need %d)\n", rep.PassCount, rep.Total, verdict, validation.MinPassing)
	return nil
}

func formatMetrics(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4g", k, m[k])
	}
	return strings.Join(parts, " ")
}

func genotypeLabel(gt int, ok bool) string {
	if !ok {
		return "?"
	}
	switch gt {
	case 0:
		return "0 (ref/ref)"
	case 2:
		return "2 (alt/alt)"
	default:
		return "1 (ref/alt)"
	}
}

// RenderVariableLoci writes the genotypes of both strains at up to limit loci.
func RenderVariableLoci(w io.Writer, ds *strain.Dataset, strainA, strainB string, loci []strain.Locus, limit int) error {
	if len(loci) == 0 {
		fmt.Fprintf(w, "No genetic variation between %s and %s\n", strainA, strainB)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Position\t%s\t%s\n", strainA, strainB)
	shown := loci
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, l := range shown {
		a, okA := ds.Geno[strainA][l.Key()]
		b, okB := ds.Geno[strainB][l.Key()]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Key(), genotypeLabel(a, okA), genotypeLabel(b, okB))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(loci) > len(shown) {
		fmt.Fprintf(w, "... and %d more variable loci\n", len(loci)-len(shown))
	}
	return nil
}

// RenderPrediction writes predicted phenotype probabilities, most likely first.
func RenderPrediction(w io.Writer, title string, probs []strain.PhenotypeProbability) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, p := range probs {
		fmt.Fprintf(w, "  %-16s %5.1f%%\n", p.Phenotype, p.Probability*100)
	}
}

// RenderPedigree writes a pedigree tree, one mouse per line indented by
// generation, followed by the number of distinct ancestors.
func RenderPedigree(w io.Writer, tree sim.PedigreeNode, ancestors []int64) {
	fmt.Fprintf(w, "=== Pedigree of mouse #%d ===\n", tree.Mouse.ID)
	renderPedigreeNode(w, tree, 0)
	fmt.Fprintf(w, "Ancestors: %d\n", len(ancestors))
}

func renderPedigreeNode(w io.Writer, n sim.PedigreeNode, indent int) {
	traits := n.Mouse.Phenotype.Traits()
	pheno := make([]string, len(traits))
	for i, t := range traits {
		pheno[i] = t + "=" + n.Mouse.Phenotype[t]
	}
	fmt.Fprintf(w, "%s+- Mouse #%d (Gen %d): %s\n", strings.Repeat("  ", indent), n.Mouse.ID, n.Mouse.Generation, strings.Join(pheno, ", "))
	for _, parent := range n.Parents {
		renderPedigreeNode(w, parent, indent+1)
	}
}
