package validation

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeding-sim/breeding-sim/sim"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

// smallConfig shrinks the fixtures so the suite runs quickly in tests.
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Genome = sim.GenomeConfig{Chromosomes: 2, MarkersPerChromosome: 100, ChromosomeLengthCM: 100, FounderFreqMin: 0.05, FounderFreqMax: 0.5}
	cfg.MendelianOffspring = 1000
	cfg.GRMFamilies = 30
	cfg.InbreedingLines = 33
	cfg.InbreedingChromosomes = 5
	cfg.HeritabilityFounders = 1500
	cfg.PredictionOffspring = 1000
	return cfg
}

func TestChiSquare(t *testing.T) {
	tests := []struct {
		name     string
		observed []float64
		expected []float64
		wantChi2 float64
		wantP    float64
	}{
		{"perfect fit", []float64{250, 500, 250}, []float64{250, 500, 250}, 0, 1},
		// (20² + 0 + 20²) / 250 = 3.2; two-df survival is e^{-1.6}
		{"symmetric deviation", []float64{270, 500, 230}, []float64{250, 500, 250}, 3.2, 0.2019},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chi2, p := ChiSquare(tc.observed, tc.expected)
			assert.InDelta(t, tc.wantChi2, chi2, 1e-9)
			assert.InDelta(t, tc.wantP, p, 1e-3)
		})
	}
}

func TestChiSquare_SingleCategory(t *testing.T) {
	_, p := ChiSquare([]float64{10}, []float64{10})
	assert.Equal(t, 1.0, p)
}

func TestMendelianRatios_HeterozygousCross(t *testing.T) {
	// GIVEN two parents heterozygous at every marker
	res, err := MendelianRatios(smallConfig())
	require.NoError(t, err)

	// THEN every offspring is counted once
	assert.Equal(t, MethodMendelian, res.Method)
	total := res.Metrics["count_0"] + res.Metrics["count_1"] + res.Metrics["count_2"]
	assert.Equal(t, 1000.0, total)

	// AND the counts are close to 1:2:1 (each class within ±60 of expectation)
	assert.InDelta(t, 250, res.Metrics["count_0"], 60)
	assert.InDelta(t, 500, res.Metrics["count_1"], 60)
	assert.InDelta(t, 250, res.Metrics["count_2"], 60)

	// AND the verdict agrees with the statistic
	assert.Equal(t, res.Metrics["chi_square"] < ChiSquareCritical2DF, res.Passed)
}

func TestMendelianRatios_Reproducible(t *testing.T) {
	a, err := MendelianRatios(smallConfig())
	require.NoError(t, err)
	b, err := MendelianRatios(smallConfig())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGRMRelationships_ClassMeans(t *testing.T) {
	res, err := GRMRelationships(smallConfig())
	require.NoError(t, err)

	assert.Equal(t, 30.0, res.Metrics["families"])
	assert.InDelta(t, 0, res.Metrics["unrelated"], 0.2)
	assert.InDelta(t, 0.5, res.Metrics["parent_offspring"], 0.2)
	assert.InDelta(t, 0.5, res.Metrics["full_sibs"], 0.2)
	assert.InDelta(t, 1, res.Metrics["self"], 0.2)

	// Full sibs share more than unrelated founders
	assert.Greater(t, res.Metrics["full_sibs"], res.Metrics["unrelated"])
	assert.Greater(t, res.Metrics["parent_offspring"], res.Metrics["unrelated"])
}

func TestInbreedingCorrelation_PedigreeTracksGenome(t *testing.T) {
	// GIVEN lines of 0..10 generations of sib mating
	res, err := InbreedingCorrelation(smallConfig())
	require.NoError(t, err)

	// THEN pedigree and genomic inbreeding are strongly correlated
	assert.Equal(t, 33.0, res.Metrics["lines"])
	assert.Greater(t, res.Metrics["correlation"], 0.7)
	assert.Greater(t, res.Metrics["mean_f_pedigree"], 0.0)
	assert.Equal(t, res.Metrics["correlation"] > MinInbreedingCorrelation, res.Passed)
}

func TestInbreedingCorrelation_NoSibMatingHasNoVariance(t *testing.T) {
	// GIVEN a single line (zero generations of sib mating)
	cfg := smallConfig()
	cfg.InbreedingLines = 1

	// WHEN the correlation is computed
	res, err := InbreedingCorrelation(cfg)
	require.NoError(t, err)

	// THEN it degrades to zero with a note instead of NaN
	assert.False(t, res.Passed)
	assert.Equal(t, 0.0, res.Metrics["correlation"])
	assert.NotEmpty(t, res.Notes)
}

func TestRealizedHeritability_RecoversTarget(t *testing.T) {
	res, err := RealizedHeritability(smallConfig())
	require.NoError(t, err)

	assert.Equal(t, 1500.0, res.Metrics["founders"])
	assert.Equal(t, 300.0, res.Metrics["selected"])
	assert.Greater(t, res.Metrics["selection_differential"], 0.0)
	assert.Greater(t, res.Metrics["response"], 0.0)
	// Realized h² lands in the neighbourhood of the configured 0.4
	assert.InDelta(t, 0.4, res.Metrics["h2_realized"], 0.2)
	assert.Equal(t, res.Metrics["relative_error"] <= HeritabilityTolerance, res.Passed)
}

func TestRealModePredictions_DemoStrains(t *testing.T) {
	// GIVEN the built-in dominant coat color fixture
	res, err := RealModePredictions(smallConfig())
	require.NoError(t, err)

	// THEN every F1 mouse is black
	assert.Equal(t, 1.0, res.Metrics["loci"])
	assert.InDelta(t, 1.0, res.Metrics["f1_predicted_black"], 1e-9)
	assert.InDelta(t, 1.0, res.Metrics["f1_observed_black"], 1e-9)

	// AND the F2 segregates 3 black : 1 brown
	assert.InDelta(t, 0.75, res.Metrics["f2_predicted_black"], 0.03)
	assert.InDelta(t, 0.75, res.Metrics["f2_observed_black"], 0.05)
	assert.InDelta(t, 0.25, res.Metrics["f2_observed_brown"], 0.05)
	assert.True(t, res.Passed, "notes: %v", res.Notes)
}

func TestRealModePredictions_UnknownStrains(t *testing.T) {
	// GIVEN a dataset where neither requested strain exists
	cfg := smallConfig()
	ds, models, _ := DemoStrains()
	cfg.Dataset, cfg.Models = ds, models
	cfg.StrainA, cfg.StrainB = "NOPE_A", "NOPE_B"

	res, err := RealModePredictions(cfg)

	// THEN the method fails without an error
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.NotEmpty(t, res.Notes)
}

func TestDemoStrains(t *testing.T) {
	ds, models, loci := DemoStrains()
	require.Len(t, loci, 1)
	assert.Equal(t, []string{"DEMO_A", "DEMO_B"}, ds.Strains())
	assert.Equal(t, 2, ds.Geno["DEMO_A"][loci[0].Key()])
	assert.Equal(t, 0, ds.Geno["DEMO_B"][loci[0].Key()])
	assert.Equal(t, "black", models.Phenotype("tyrp1", 1))
	assert.Equal(t, "brown", models.Phenotype("tyrp1", 0))
}

func TestMethodNames_RunOrder(t *testing.T) {
	assert.Equal(t, []string{
		"mendelian_ratios",
		"grm_relationships",
		"inbreeding_correlation",
		"heritability",
		"real_mode_predictions",
	}, MethodNames())
}

func TestWithDefaults_FillsZeroFields(t *testing.T) {
	cfg := Config{Seed: 7, HeritabilitySelected: 1.5, PredictionOffspring: 1}.withDefaults()
	d := DefaultConfig()
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, d.Genome, cfg.Genome)
	assert.Equal(t, d.HeritabilitySelected, cfg.HeritabilitySelected)
	assert.Equal(t, d.PredictionOffspring, cfg.PredictionOffspring)
	assert.Equal(t, d.InbreedingLines, cfg.InbreedingLines)
}

func TestRunAll_Report(t *testing.T) {
	rep, err := RunAll(context.Background(), smallConfig())
	require.NoError(t, err)

	require.Len(t, rep.Results, len(MethodNames()))
	assert.Equal(t, len(MethodNames()), rep.Total)
	passed := 0
	for i, r := range rep.Results {
		assert.Equal(t, MethodNames()[i], r.Method)
		if r.Passed {
			passed++
		}
	}
	assert.Equal(t, passed, rep.PassCount)
	assert.Equal(t, rep.PassCount >= MinPassing, rep.OverallPass)
}

func TestRunAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := RunAll(ctx, smallConfig())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rep)
}
