package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/strain"
	"github.com/breeding-sim/breeding-sim/sim/trace"
	"github.com/breeding-sim/breeding-sim/sim/validation"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

func twoSnapshots() []sim.Snapshot {
	return []sim.Snapshot{
		{Generation: 0, PopulationSize: 10, AvgFitness: 40, HeterozygositySNP: 0.3},
		{Generation: 5, PopulationSize: 10, AvgFitness: 90, MeanFPedigree: 0.25, HeterozygositySNP: 0.2},
	}
}

func TestRenderComparison(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderComparison(&buf, twoSnapshots()))
	out := buf.String()

	assert.Contains(t, out, "Strategy Comparison (generation 5)")
	lines := strings.Split(out, "\n")
	var fitness string
	for _, l := range lines {
		if strings.Contains(l, "Avg Fitness") {
			fitness = l
		}
	}
	assert.Regexp(t, `40\.000\s+90\.000\s+\+50\.000`, fitness)
	assert.Contains(t, out, "-0.100")
}

func TestRenderComparison_ShortHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderComparison(&buf, twoSnapshots()[:1]))
	assert.Empty(t, buf.String())
}

func TestRenderSummary(t *testing.T) {
	s := twoSnapshots()[1]
	s.TraitFrequencies = map[string]map[string]float64{
		sim.TraitSize: {"small": 25, "large": 75},
	}
	var buf bytes.Buffer
	RenderSummary(&buf, s, true, true)
	out := buf.String()

	assert.Contains(t, out, "Generation 5:")
	assert.Contains(t, out, "Fitness=90.0%")
	assert.Contains(t, out, "large 75.0%, small 25.0%")
	assert.Contains(t, out, "VICTORY")

	buf.Reset()
	RenderSummary(&buf, s, false, false)
	assert.NotContains(t, buf.String(), "VICTORY")
	assert.NotContains(t, buf.String(), "large 75.0%")
}

func TestRenderTraceSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderTraceSummary(&buf, &trace.TraceSummary{TotalMatings: 4, TotalOffspring: 20, MaxRelatedness: 0.5})
	assert.Contains(t, buf.String(), "Total Matings        : 4")
	assert.Contains(t, buf.String(), "Max Relatedness      : 0.500")
}

func TestRenderValidation(t *testing.T) {
	rep := &validation.Report{
		Results: []validation.Result{
			{Method: "mendelian_ratios", Passed: true, Metrics: map[string]float64{"chi_square": 1.5}},
			{Method: "heritability", Notes: []string{"no selection differential"}, Metrics: map[string]float64{}},
		},
		PassCount: 1,
		Total:     2,
	}
	var buf bytes.Buffer
	require.NoError(t, RenderValidation(&buf, rep))
	out := buf.String()

	assert.Regexp(t, `mendelian_ratios\s+PASS\s+chi_square=1\.5`, out)
	assert.Regexp(t, `heritability\s+FAIL`, out)
	assert.Contains(t, out, "note: no selection differential")
	assert.Contains(t, out, "Overall: 1/2 passed (FAILED, need 3)")
}

func TestRenderVariableLoci(t *testing.T) {
	ds := strain.NewDataset()
	var loci []strain.Locus
	for i := 0; i < 3; i++ {
		l := strain.Locus{Chr: "chr4", Pos: 100 + i}
		ds.SetGenotype("A", l.Key(), 2)
		ds.SetGenotype("B", l.Key(), i%2)
		loci = append(loci, l)
	}

	var buf bytes.Buffer
	require.NoError(t, RenderVariableLoci(&buf, ds, "A", "B", loci, 2))
	out := buf.String()
	assert.Regexp(t, `chr4:100\s+2 \(alt/alt\)\s+0 \(ref/ref\)`, out)
	assert.Regexp(t, `chr4:101\s+2 \(alt/alt\)\s+1 \(ref/alt\)`, out)
	assert.NotContains(t, out, "chr4:102")
	assert.Contains(t, out, "... and 1 more variable loci")

	buf.Reset()
	require.NoError(t, RenderVariableLoci(&buf, ds, "A", "B", nil, 5))
	assert.Contains(t, buf.String(), "No genetic variation between A and B")
}

func TestRenderPrediction(t *testing.T) {
	var buf bytes.Buffer
	RenderPrediction(&buf, "F2", []strain.PhenotypeProbability{{Phenotype: "black", Probability: 0.75}, {Phenotype: "brown", Probability: 0.25}})
	assert.Contains(t, buf.String(), "F2:")
	assert.Regexp(t, `black\s+75\.0%`, buf.String())
}

func TestDirSink_ExportHistory(t *testing.T) {
	// GIVEN a directory sink
	dir := filepath.Join(t.TempDir(), "out")
	h := History{Seed: 7, Goal: "{size=large}", Strategy: "fitness", Snapshots: twoSnapshots()}

	// WHEN a history is exported
	require.NoError(t, ExportHistory(context.Background(), DirSink{Dir: dir}, "run", h))

	// THEN both encodings decode back to the same history
	data, err := os.ReadFile(filepath.Join(dir, "run.json"))
	require.NoError(t, err)
	var fromJSON History
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, h, fromJSON)

	data, err = os.ReadFile(filepath.Join(dir, "run.yaml"))
	require.NoError(t, err)
	var fromYAML History
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, int64(7), fromYAML.Seed)
	require.Len(t, fromYAML.Snapshots, 2)
	assert.Equal(t, 90.0, fromYAML.Snapshots[1].AvgFitness)
}

func TestNewHistory_IncludesTrace(t *testing.T) {
	cfg := sim.DefaultPopulationConfig()
	cfg.Size = 6
	cfg.Genome.MarkersPerChromosome = 10
	cfg.Trace = trace.TraceConfig{Level: trace.TraceLevelMatings}
	pop, err := sim.NewPopulation(cfg, sim.NewPartitionedRNG(sim.NewSimulationKey(3)), sim.NewIDAllocator(1))
	require.NoError(t, err)
	_, err = pop.NextGeneration("fitness", 0)
	require.NoError(t, err)

	h := NewHistory(3, pop, "fitness", 0, false)
	assert.Len(t, h.Snapshots, 2)
	require.NotNil(t, h.Trace)
	assert.Equal(t, len(h.Matings), h.Trace.TotalMatings)
	assert.Equal(t, pop.Goal.String(), h.Goal)
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink_Put(t *testing.T) {
	fake := &fakePutter{}
	sink := &S3Sink{client: fake, bucket: "results", prefix: "runs/42"}

	require.NoError(t, ExportHistory(context.Background(), sink, "history", History{Seed: 42}))

	require.Len(t, fake.inputs, 2)
	assert.Equal(t, "results", *fake.inputs[0].Bucket)
	assert.Equal(t, "runs/42/history.yaml", *fake.inputs[0].Key)
	assert.Equal(t, "application/yaml", *fake.inputs[0].ContentType)
	assert.Equal(t, "runs/42/history.json", *fake.inputs[1].Key)
	assert.Contains(t, fake.bodies[1], `"seed": 42`)
	assert.Equal(t, int64(len(fake.bodies[1])), *fake.inputs[1].ContentLength)
}

func TestS3Sink_PutError(t *testing.T) {
	sink := &S3Sink{client: &fakePutter{err: errors.New("denied")}, bucket: "results"}
	err := sink.Put(context.Background(), "x.json", "", []byte("{}"))
	assert.ErrorContains(t, err, "put s3://results/x.json: denied")
}

func TestNewS3Sink(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "s3 bucket required")

	sink, err := NewS3Sink(context.Background(), S3Config{
		Bucket:          "results",
		Prefix:          "/runs/",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "runs/a.json", sink.Key("a.json"))
}

func TestRenderPedigree(t *testing.T) {
	// GIVEN a child of two founders
	dam := &sim.Mouse{ID: 1, Phenotype: sim.Phenotype{"coat_color": "black", "size": "large"}}
	sire := &sim.Mouse{ID: 2, Phenotype: sim.Phenotype{"coat_color": "white", "size": "small"}}
	child := &sim.Mouse{ID: 5, Generation: 1, Parents: &sim.ParentPair{First: 1, Second: 2},
		Phenotype: sim.Phenotype{"size": "large", "coat_color": "black"}}
	tree := sim.PedigreeNode{Mouse: child, Parents: []sim.PedigreeNode{{Mouse: dam}, {Mouse: sire}}}

	// WHEN the tree is rendered
	var buf bytes.Buffer
	RenderPedigree(&buf, tree, []int64{1, 2})

	// THEN parents are indented under the child with sorted traits
	assert.Equal(t, "=== Pedigree of mouse #5 ===\n"+
		"+- Mouse #5 (Gen 1): coat_color=black, size=large\n"+
		"  +- Mouse #1 (Gen 0): coat_color=black, size=large\n"+
		"  +- Mouse #2 (Gen 0): coat_color=white, size=small\n"+
		"Ancestors: 2\n", buf.String())
}
