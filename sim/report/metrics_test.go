package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics_Observe(t *testing.T) {
	// GIVEN metrics fed the initial and final snapshot of one population
	m := NewRunMetrics()
	snaps := twoSnapshots()
	m.Observe("pop_a", snaps[0], false)
	m.Observe("pop_a", snaps[1], true)

	// THEN the gauges hold the final snapshot and one generation is counted
	assert.Equal(t, 5.0, testutil.ToFloat64(m.generation.WithLabelValues("pop_a")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.fitness.WithLabelValues("pop_a")))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.fPedigree.WithLabelValues("pop_a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.victory.WithLabelValues("pop_a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("pop_a")))
}

func TestRunMetrics_PopulationsLabelledSeparately(t *testing.T) {
	m := NewRunMetrics()
	m.Observe("pop_a", twoSnapshots()[0], false)
	m.Observe("pop_b", twoSnapshots()[1], false)

	assert.Equal(t, 2, testutil.CollectAndCount(m.fitness))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.fitness.WithLabelValues("pop_a")))
}

func TestRunMetrics_WriteTextfile(t *testing.T) {
	m := NewRunMetrics()
	m.Observe("pop_a", twoSnapshots()[1], false)
	path := filepath.Join(t.TempDir(), "run.prom")

	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `breeding_sim_avg_fitness_percent{population="pop_a"} 90`)
	assert.Contains(t, string(data), "# TYPE breeding_sim_generations_total counter")
}
