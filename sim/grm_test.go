package sim

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeGRM_Errors(t *testing.T) {
	_, err := ComputeGRM(nil)
	assert.True(t, errors.Is(err, ErrComputation))

	_, err = ComputeGRM([][]int{{0, 1}, {2}})
	assert.True(t, errors.Is(err, ErrComputation))
}

func TestComputeGRM_ZeroMarkers(t *testing.T) {
	g, err := ComputeGRM([][]int{{}, {}, {}})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Size())
	for _, row := range g.Rows() {
		assert.Equal(t, []float64{0, 0, 0}, row)
	}
}

func TestComputeGRM_TwoOppositeHomozygotes(t *testing.T) {
	// GIVEN one marker, genotypes 0 and 2: p = 0.5, D = 0.5, Z = [−1, 1]
	g, err := ComputeGRM([][]int{{0}, {2}})
	require.NoError(t, err)

	// THEN G = ZZᵀ/D
	assert.Equal(t, [][]float64{{2, -2}, {-2, 2}}, g.Rows())
	assert.Equal(t, []float64{1, 1}, g.GenomicInbreeding())
	assert.InDelta(t, 2, g.MeanDiagonal(), 1e-12)
	assert.InDelta(t, -2, g.MeanOffDiagonal(), 1e-12)
	assert.InDelta(t, 0.5, g.Scale, 1e-12)
}

func TestComputeGRM_MonomorphicMarkersScaleOne(t *testing.T) {
	g, err := ComputeGRM([][]int{{2, 0}, {2, 0}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.Scale)
	assert.Equal(t, [][]float64{{0, 0}, {0, 0}}, g.Rows())
	assert.Equal(t, []float64{1, 0}, g.Frequencies)
}

func TestComputeGRM_SymmetricWithUnitMeanDiagonalAtHWE(t *testing.T) {
	// GIVEN a large HWE founder sample
	cfg := GenomeConfig{Chromosomes: 2, MarkersPerChromosome: 200, ChromosomeLengthCM: 100, FounderFreqMin: 0.1, FounderFreqMax: 0.5}
	rng := rand.New(rand.NewSource(21))
	ids := NewIDAllocator(1)
	freqs := DrawFounderFrequencies(rng, cfg)
	var mice []*Mouse
	for i := 0; i < 200; i++ {
		mice = append(mice, NewMouse(ids, NewFounderGenome(rng, cfg, freqs), 0, nil, nil))
	}

	// WHEN computing the GRM
	g, err := ComputeGRM(GenotypeMatrix(mice))
	require.NoError(t, err)

	// THEN it is symmetric, diagonal ≈ 1 and off-diagonal ≈ 0
	for i := 0; i < g.Size(); i++ {
		for j := 0; j < i; j++ {
			assert.InDelta(t, g.At(i, j), g.At(j, i), 1e-9)
		}
	}
	assert.InDelta(t, 1, g.MeanDiagonal(), 0.05)
	assert.InDelta(t, 0, g.MeanOffDiagonal(), 0.02)
}

func TestComputeGRM_SingleIndividual(t *testing.T) {
	g, err := ComputeGRM([][]int{{0, 1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Size())
	assert.Equal(t, 0.0, g.MeanOffDiagonal())
}

func TestMeanHeterozygosity(t *testing.T) {
	assert.Equal(t, 0.0, MeanHeterozygosity(nil))
	// p = 0.5 and p = 0: heterozygosity 0.5 and 0
	assert.InDelta(t, 0.25, MeanHeterozygosity([][]int{{1, 0}, {1, 0}}), 1e-12)
}

func TestAlleleFrequencies(t *testing.T) {
	assert.Equal(t, []float64{0.25, 1, 0}, AlleleFrequencies([][]int{{1, 2, 0}, {0, 2, 0}}))
}
