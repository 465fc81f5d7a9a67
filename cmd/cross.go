package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/report"
	"github.com/breeding-sim/breeding-sim/sim/session"
	"github.com/breeding-sim/breeding-sim/sim/strain"
)

// maxLoci bounds variable-locus detection in cross
var maxLoci int

// crossRequest names the strains and tables of a real-strain cross.
type crossRequest struct {
	Dataset *strain.Dataset
	Models  *strain.GeneModels
	StrainA string
	StrainB string
	MaxLoci int
	Size    int
	Goal    string
	Name    string
}

// runCross founds a population from two strains, prints the loci where they
// differ and the Punnett predictions for the F1 and F2 crosses, then advances
// the population.
func runCross(ctx context.Context, w io.Writer, sess *session.Session, b *sim.Bundle, req crossRequest, opts advanceOptions) (report.History, error) {
	if err := checkRunSize(req.Size); err != nil {
		return report.History{}, err
	}
	for _, s := range []string{req.StrainA, req.StrainB} {
		if !req.Dataset.HasStrain(s) {
			return report.History{}, fmt.Errorf("strain %q has no genotype data; available: %s", s, strings.Join(req.Dataset.Strains(), ", "))
		}
	}
	gene := strain.GeneFromPath(req.Dataset.GenoPath)
	loci := strain.DetectVariableLoci(req.Dataset, req.StrainA, req.StrainB, gene, req.Models, req.MaxLoci)

	fmt.Fprintf(w, "=== Cross: %s x %s ===\n", req.StrainA, req.StrainB)
	if info, ok := req.Models.Lookup(gene); ok && info.Name != "" {
		fmt.Fprintf(w, "Gene  : %s (%s)\n", gene, info.Name)
	} else {
		fmt.Fprintf(w, "Gene  : %s\n", gene)
	}
	fmt.Fprintf(w, "Trait : %s\n", req.Models.Trait(gene))
	for _, s := range []string{req.StrainA, req.StrainB} {
		if color, ok := req.Dataset.Pheno[s][sim.TraitCoatColor]; ok {
			fmt.Fprintf(w, "%s coat color: %s\n", s, color)
		}
	}
	fmt.Fprintln(w)
	if err := report.RenderVariableLoci(w, req.Dataset, req.StrainA, req.StrainB, loci, req.MaxLoci); err != nil {
		return report.History{}, err
	}

	id, pop, err := sess.CreatePopulation(ctx, session.PopulationRequest{
		Size:       req.Size,
		GoalPreset: req.Goal,
		Name:       req.Name,
		Real: &session.RealRequest{
			Dataset: req.Dataset,
			StrainA: req.StrainA,
			StrainB: req.StrainB,
			Models:  req.Models,
			Loci:    loci,
		},
	})
	if err != nil {
		return report.History{}, err
	}

	fmt.Fprintln(w)
	if len(loci) == 0 {
		fmt.Fprintln(w, "No predictions: the strains share every genotyped allele")
	} else if err := renderCrossPredictions(ctx, w, sess, b.Seed, pop, loci, req.Models); err != nil {
		return report.History{}, err
	}

	fmt.Fprintln(w)
	return advancePopulation(ctx, w, sess, b, id, pop, opts)
}

// renderCrossPredictions predicts the F1 from the two founder strains and the
// F2 from a pair of bred F1 siblings.
func renderCrossPredictions(ctx context.Context, w io.Writer, sess *session.Session, seed int64, pop *sim.Population, loci []strain.Locus, models *strain.GeneModels) error {
	founders := pop.Mice()
	a, b := founders[0], founders[1]
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem("prediction")

	f1Pred := strain.PunnettProbabilities(a.RealGenotypes, b.RealGenotypes, loci, models, strain.DefaultPunnettDraws, rng)
	report.RenderPrediction(w, fmt.Sprintf("F1 (%s x %s)", a.Strain, b.Strain), f1Pred)

	f1, err := sess.Breed(ctx, a.ID, b.ID, 2)
	if err != nil {
		return err
	}
	f2Pred := strain.PunnettProbabilities(f1[0].RealGenotypes, f1[1].RealGenotypes, loci, models, strain.DefaultPunnettDraws, rng)
	report.RenderPrediction(w, "F2 (F1 x F1)", f2Pred)
	return nil
}

// crossCmd crosses two inbred strains from real genotype data
var crossCmd = &cobra.Command{
	Use:   "cross",
	Short: "Cross two inbred strains using real genotype data",
	Run: func(cmd *cobra.Command, args []string) {
		bundle, err := loadBundle(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		applyRunOverrides(cmd, bundle)
		if err := bundle.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			logrus.Fatalf("Failed to open store: %v", err)
		}
		if st != nil {
			defer st.Close()
		}

		sess := session.New(session.Options{Seed: bundle.Seed, Bundle: bundle, Store: st})
		opts := currentAdvanceOptions()
		h, err := runCross(ctx, os.Stdout, sess, bundle, crossRequest{
			Dataset: strain.LoadDataset(genoPath, phenoPath),
			Models:  strain.LoadGeneModels(geneModelsPath),
			StrainA: strainA,
			StrainB: strainB,
			MaxLoci: maxLoci,
			Size:    popSize,
			Goal:    goalName,
			Name:    exportName,
		}, opts)
		if err != nil {
			logrus.Fatalf("Cross failed: %v", err)
		}
		if err := exportHistory(ctx, exportName, h); err != nil {
			logrus.Fatalf("Failed to export history: %v", err)
		}
		if err := writeMetrics(opts); err != nil {
			logrus.Fatalf("Failed to write metrics: %v", err)
		}
	},
}

func init() {
	registerStrainFlags(crossCmd)
	registerPopulationFlags(crossCmd)
	crossCmd.Flags().IntVar(&maxLoci, "max-loci", strain.DefaultMaxLoci, "Maximum number of variable loci to use")
	_ = crossCmd.MarkFlagRequired("geno")
	_ = crossCmd.MarkFlagRequired("strain-a")
	_ = crossCmd.MarkFlagRequired("strain-b")

	rootCmd.AddCommand(crossCmd)
}
