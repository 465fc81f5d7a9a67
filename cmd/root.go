package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/session"
	"github.com/breeding-sim/breeding-sim/sim/store"
	"github.com/breeding-sim/breeding-sim/sim/trace"
)

var (
	// Flags shared by every command
	seed         int64  // Seed for random number generation
	logLevel     string // Log verbosity level
	configPath   string // Path to the YAML run configuration
	storeBackend string // Persistence backend, empty disables persistence
	storeDSN     string // SQLite file path or Postgres connection string

	// Flags for population runs
	popSize          int     // Number of founders
	generations      int     // Generations to advance
	strategyName     string  // Pairing strategy
	goalName         string  // Goal preset or custom goal name
	cullRate         float64 // Fraction culled after each generation
	topN             int     // Fitness strategy pair pool
	victoryThreshold float64 // Percentage of the roster that must match the goal
	stopOnVictory    bool    // Stop advancing once the goal is reached
	traceLevel       string  // Mating trace level
	verbose          bool    // Print trait frequencies every generation
	pedigreeDepth    int     // Ancestor generations shown for the fittest mouse
	metricsFile      string  // Prometheus textfile for run metrics

	// Flags for history export
	exportDir   string // Local directory for history files
	exportName  string // Base name of exported history files
	s3Bucket    string // S3 bucket for history files
	s3Prefix    string // S3 key prefix
	s3Region    string // S3 region
	s3Endpoint  string // S3-compatible endpoint
	s3PathStyle bool   // Use path-style S3 addressing
	s3AccessKey string // Static S3 access key
	s3SecretKey string // Static S3 secret key
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "breeding-sim",
	Short: "Mouse breeding genetics simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd advances a simulated population and reports its history
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Breed a simulated population toward a goal",
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
		h, err := runPopulation(ctx, os.Stdout, sess, bundle, session.PopulationRequest{
			Size:       popSize,
			GoalPreset: goalName,
			Name:       exportName,
		}, opts)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		if err := exportHistory(ctx, exportName, h); err != nil {
			logrus.Fatalf("Failed to export history: %v", err)
		}
		if err := writeMetrics(opts); err != nil {
			logrus.Fatalf("Failed to write metrics: %v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerPopulationFlags adds the flags of commands that advance a population.
func registerPopulationFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&popSize, "size", 20, "Number of founders")
	cmd.Flags().IntVar(&generations, "generations", 5, "Generations to advance")
	cmd.Flags().StringVar(&strategyName, "strategy", sim.DefaultStrategy, "Pairing strategy (random, fitness, diverse)")
	cmd.Flags().StringVar(&goalName, "goal", sim.DefaultGoalPreset, "Goal preset or custom goal name")
	cmd.Flags().Float64Var(&cullRate, "cull-rate", 0, "Fraction of the roster culled after each generation")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Fitness strategy pair pool, 0 = top half")
	cmd.Flags().Float64Var(&victoryThreshold, "victory-threshold", sim.DefaultVictoryThreshold, "Percentage of the roster that must match the goal")
	cmd.Flags().BoolVar(&stopOnVictory, "stop-on-victory", false, "Stop advancing once the goal is reached")
	cmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Mating trace level (none, matings)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print trait frequencies every generation")
	cmd.Flags().IntVar(&pedigreeDepth, "pedigree", 0, "Print the pedigree of the fittest mouse this many generations back, 0 = off")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this textfile")
	cmd.Flags().StringVar(&exportName, "name", "history", "Population name and base name of exported history files")
	registerExportFlags(cmd)
}

// registerExportFlags adds the history export destinations.
func registerExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "Directory to write results to (YAML and JSON)")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket to upload results to")
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", "", "S3 key prefix")
	cmd.Flags().StringVar(&s3Region, "s3-region", "", "S3 region (default us-east-1)")
	cmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().BoolVar(&s3PathStyle, "s3-path-style", false, "Use path-style S3 addressing")
	cmd.Flags().StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key, default credential chain when empty")
	cmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Seed for random number generation")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultsFilePath, "Path to the YAML run configuration")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "Persistence backend ("+store.BackendMemory+", "+store.BackendSQLite+", "+store.BackendPostgres+"), empty disables persistence")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "dsn", "", "SQLite file path or Postgres connection string")

	registerPopulationFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
