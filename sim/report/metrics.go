package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/breeding-sim/breeding-sim/sim"
)

const metricsNamespace = "breeding_sim"

// RunMetrics holds Prometheus gauges of the latest snapshot of each
// population, labelled by population id.
type RunMetrics struct {
	registry *prometheus.Registry

	generation  *prometheus.GaugeVec
	size        *prometheus.GaugeVec
	fitness     *prometheus.GaugeVec
	fPedigree   *prometheus.GaugeVec
	fGenomic    *prometheus.GaugeVec
	hetSNP      *prometheus.GaugeVec
	traitMean   *prometheus.GaugeVec
	h2          *prometheus.GaugeVec
	victory     *prometheus.GaugeVec
	generations *prometheus.CounterVec
}

func newGauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
	}, []string{"population"})
}

// NewRunMetrics registers the run gauges on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry:    prometheus.NewRegistry(),
		generation:  newGauge("generation", "Current generation."),
		size:        newGauge("population_size", "Roster size."),
		fitness:     newGauge("avg_fitness_percent", "Average goal fitness of the roster."),
		fPedigree:   newGauge("mean_f_pedigree", "Mean pedigree inbreeding coefficient."),
		fGenomic:    newGauge("mean_f_genomic", "Mean genomic inbreeding coefficient."),
		hetSNP:      newGauge("heterozygosity_snp", "Mean SNP heterozygosity."),
		traitMean:   newGauge("trait_mean", "Mean quantitative trait value."),
		h2:          newGauge("h2_empirical", "Empirical heritability."),
		victory:     newGauge("victory", "1 when the goal threshold is reached."),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "generations_total",
			Help:      "Generations advanced.",
		}, []string{"population"}),
	}
	m.registry.MustRegister(m.generation, m.size, m.fitness, m.fPedigree, m.fGenomic,
		m.hetSNP, m.traitMean, m.h2, m.victory, m.generations)
	return m
}

// Observe records a snapshot. Snapshots past generation 0 count as one
// advanced generation.
func (m *RunMetrics) Observe(population string, s sim.Snapshot, victory bool) {
	m.generation.WithLabelValues(population).Set(float64(s.Generation))
	m.size.WithLabelValues(population).Set(float64(s.PopulationSize))
	m.fitness.WithLabelValues(population).Set(s.AvgFitness)
	m.fPedigree.WithLabelValues(population).Set(s.MeanFPedigree)
	m.fGenomic.WithLabelValues(population).Set(s.MeanFGenomic)
	m.hetSNP.WithLabelValues(population).Set(s.HeterozygositySNP)
	m.traitMean.WithLabelValues(population).Set(s.TraitMean)
	m.h2.WithLabelValues(population).Set(s.H2Empirical)
	v := 0.0
	if victory {
		v = 1
	}
	m.victory.WithLabelValues(population).Set(v)
	if s.Generation > 0 {
		m.generations.WithLabelValues(population).Inc()
	}
}

// Registry returns the registry holding the run metrics.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter textfile collector.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
