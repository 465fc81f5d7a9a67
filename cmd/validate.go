package cmd

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/report"
	"github.com/breeding-sim/breeding-sim/sim/session"
	"github.com/breeding-sim/breeding-sim/sim/strain"
	"github.com/breeding-sim/breeding-sim/sim/validation"
)

var (
	// Strain data flags, shared by validate and cross
	genoPath       string // Strain genotype CSV
	phenoPath      string // Strain phenotype CSV
	geneModelsPath string // Gene model YAML
	strainA        string // First founder strain
	strainB        string // Second founder strain
)

// validationConfig builds the suite configuration. The real-mode fixture uses
// the strain flags when a genotype file is given.
func validationConfig(b *sim.Bundle) validation.Config {
	cfg := validation.DefaultConfig()
	cfg.Seed = b.Seed
	if genoPath != "" {
		cfg.Dataset = strain.LoadDataset(genoPath, phenoPath)
		cfg.Models = strain.LoadGeneModels(geneModelsPath)
		cfg.StrainA, cfg.StrainB = strainA, strainB
	}
	return cfg
}

// runValidation runs the suite through sess and prints the results.
func runValidation(ctx context.Context, w io.Writer, sess *session.Session) (*validation.Report, error) {
	rep, err := sess.Validate(ctx)
	if err != nil {
		return nil, err
	}
	if err := report.RenderValidation(w, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// validateCmd checks the engine against population-genetics expectations
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the statistical validation suite",
	Long:  "Run the Mendelian ratio, GRM relationship, inbreeding correlation, heritability and real-mode prediction checks. Exits non-zero when fewer than the required number pass.",
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

		vcfg := validationConfig(bundle)
		sess := session.New(session.Options{Seed: bundle.Seed, Bundle: bundle, Store: st, Validation: &vcfg})
		rep, err := runValidation(ctx, os.Stdout, sess)
		if err != nil {
			logrus.Fatalf("Validation failed: %v", err)
		}
		if err := exportHistory(ctx, "validation", report.History{Seed: bundle.Seed, Validation: rep}); err != nil {
			logrus.Fatalf("Failed to export validation report: %v", err)
		}
		if !rep.OverallPass {
			logrus.Fatalf("Validation suite failed: %d/%d passed", rep.PassCount, rep.Total)
		}
	},
}

// registerStrainFlags adds the strain data flags.
func registerStrainFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&genoPath, "geno", "", "Strain genotype CSV (strain,chr,pos,genotype_012)")
	cmd.Flags().StringVar(&phenoPath, "pheno", "", "Strain phenotype CSV (strain,coat_color)")
	cmd.Flags().StringVar(&geneModelsPath, "gene-models", "gene_models.yaml", "Gene model YAML")
	cmd.Flags().StringVar(&strainA, "strain-a", "", "First founder strain")
	cmd.Flags().StringVar(&strainB, "strain-b", "", "Second founder strain")
}

func init() {
	registerStrainFlags(validateCmd)
	registerExportFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}
