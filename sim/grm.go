package sim

import (
	"gonum.org/v1/gonum/mat"
)

// GRM is a VanRaden genomic relationship matrix over n individuals.
type GRM struct {
	g           *mat.Dense
	Frequencies []float64 // estimated reference allele frequency per marker
	Scale       float64   // D = Σ 2p(1−p), or 1 when that is 0
}

// GenotypeMatrix stacks the SNP genotype vectors of mice, one row per mouse.
func GenotypeMatrix(mice []*Mouse) [][]int {
	rows := make([][]int, len(mice))
	for i, m := range mice {
		rows[i] = m.SNPGenotypes()
	}
	return rows
}

// AlleleFrequencies returns p_j = Σ_i g_ij / 2n per marker.
func AlleleFrequencies(genotypes [][]int) []float64 {
	if len(genotypes) == 0 {
		return nil
	}
	m := len(genotypes[0])
	freqs := make([]float64, m)
	for _, row := range genotypes {
		for j := 0; j < m && j < len(row); j++ {
			freqs[j] += float64(row[j])
		}
	}
	denom := 2 * float64(len(genotypes))
	for j := range freqs {
		freqs[j] /= denom
	}
	return freqs
}

// ComputeGRM builds G = ZZᵀ / Σ 2p(1−p) where Z = M − 2p centers each marker
// column. Zero individuals or ragged rows are computation errors; zero markers
// yield an n×n zero matrix.
func ComputeGRM(genotypes [][]int) (*GRM, error) {
	n := len(genotypes)
	if n == 0 {
		return nil, ComputationError("grm: no individuals")
	}
	m := len(genotypes[0])
	for i, row := range genotypes {
		if len(row) != m {
			return nil, ComputationError("grm: individual %d has %d markers, want %d", i, len(row), m)
		}
	}
	if m == 0 {
		return &GRM{g: mat.NewDense(n, n, nil), Frequencies: []float64{}, Scale: 1}, nil
	}

	freqs := AlleleFrequencies(genotypes)
	z := mat.NewDense(n, m, nil)
	for i, row := range genotypes {
		for j, gt := range row {
			z.Set(i, j, float64(gt)-2*freqs[j])
		}
	}
	d := 0.0
	for _, p := range freqs {
		d += 2 * p * (1 - p)
	}
	if d == 0 {
		d = 1
	}

	g := mat.NewDense(n, n, nil)
	g.Mul(z, z.T())
	g.Scale(1/d, g)
	return &GRM{g: g, Frequencies: freqs, Scale: d}, nil
}

// Size returns the number of individuals.
func (r *GRM) Size() int {
	n, _ := r.g.Dims()
	return n
}

// At returns G[i][j].
func (r *GRM) At(i, j int) float64 {
	return r.g.At(i, j)
}

// Rows returns G as a row-major slice of slices.
func (r *GRM) Rows() [][]float64 {
	n := r.Size()
	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, r.g)
	}
	return out
}

// GenomicInbreeding returns F_i = G_ii − 1 per individual.
func (r *GRM) GenomicInbreeding() []float64 {
	n := r.Size()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.g.At(i, i) - 1
	}
	return out
}

// MeanDiagonal returns the mean of G_ii.
func (r *GRM) MeanDiagonal() float64 {
	n := r.Size()
	return mat.Trace(r.g) / float64(n)
}

// MeanOffDiagonal returns the mean of G_ij over i ≠ j, or 0 when n < 2.
func (r *GRM) MeanOffDiagonal() float64 {
	n := r.Size()
	if n < 2 {
		return 0
	}
	total := mat.Sum(r.g) - mat.Trace(r.g)
	return total / float64(n*(n-1))
}

// MeanHeterozygosity returns the mean expected SNP heterozygosity
// 1 − p² − (1−p)² over markers, or 0 without markers.
func MeanHeterozygosity(genotypes [][]int) float64 {
	freqs := AlleleFrequencies(genotypes)
	if len(freqs) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range freqs {
		total += 1 - p*p - (1-p)*(1-p)
	}
	return total / float64(len(freqs))
}
