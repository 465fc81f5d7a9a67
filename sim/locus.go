package sim

import (
	"math/rand"
	"sort"
)

// Trait names of the four Mendelian loci.
const (
	TraitCoatColor   = "coat_color"
	TraitSize        = "size"
	TraitEarShape    = "ear_shape"
	TraitTemperament = "temperament"
)

// NumTraitLoci is the number of discrete Mendelian loci every genome carries.
const NumTraitLoci = 4

// TraitLocus describes one two-allele Mendelian locus with complete dominance.
type TraitLocus struct {
	Trait          string
	Short          string // label used by GenotypeString
	Dominant       byte
	Recessive      byte
	DominantLabel  string
	RecessiveLabel string
}

// TraitLoci lists the loci in genome order.
var TraitLoci = [NumTraitLoci]TraitLocus{
	{Trait: TraitCoatColor, Short: "Coat", Dominant: 'B', Recessive: 'b', DominantLabel: "black", RecessiveLabel: "white"},
	{Trait: TraitSize, Short: "Size", Dominant: 'L', Recessive: 's', DominantLabel: "large", RecessiveLabel: "small"},
	{Trait: TraitEarShape, Short: "Ears", Dominant: 'N', Recessive: 'D', DominantLabel: "normal", RecessiveLabel: "dumbo"},
	{Trait: TraitTemperament, Short: "Temp", Dominant: 'F', Recessive: 'A', DominantLabel: "friendly", RecessiveLabel: "aggressive"},
}

// TraitIndex returns the genome position of the named trait.
func TraitIndex(trait string) (int, bool) {
	for i, l := range TraitLoci {
		if l.Trait == trait {
			return i, true
		}
	}
	return -1, false
}

// IsValidTrait returns true if trait names one of the Mendelian loci.
func IsValidTrait(trait string) bool {
	_, ok := TraitIndex(trait)
	return ok
}

// TraitNames returns the trait names in genome order.
func TraitNames() []string {
	names := make([]string, 0, NumTraitLoci)
	for _, l := range TraitLoci {
		names = append(names, l.Trait)
	}
	return names
}

// Express returns the phenotype label for an allele pair: dominant if the
// dominant allele is present.
func (l TraitLocus) Express(p AllelePair) string {
	if p[0] == l.Dominant || p[1] == l.Dominant {
		return l.DominantLabel
	}
	return l.RecessiveLabel
}

// Opposite returns the other allele of the two-allele set.
func (l TraitLocus) Opposite(a byte) byte {
	if a == l.Dominant {
		return l.Recessive
	}
	return l.Dominant
}

// Format renders an allele pair with the dominant allele first, e.g. "Bb" or "ND".
func (l TraitLocus) Format(p AllelePair) string {
	if p[1] == l.Dominant && p[0] != l.Dominant {
		return string([]byte{p[1], p[0]})
	}
	return string(p[:])
}

// Labels returns the two phenotype labels of the locus.
func (l TraitLocus) Labels() []string {
	return []string{l.DominantLabel, l.RecessiveLabel}
}

// RandomPair draws both alleles uniformly from the two-allele set.
func (l TraitLocus) RandomPair(rng *rand.Rand) AllelePair {
	alleles := [2]byte{l.Dominant, l.Recessive}
	return AllelePair{alleles[rng.Intn(2)], alleles[rng.Intn(2)]}
}

// AllelePair is an unordered pair of single-character alleles.
type AllelePair [2]byte

// String renders the pair in stored order.
func (p AllelePair) String() string {
	return string(p[:])
}

// Has reports whether allele a is present in the pair.
func (p AllelePair) Has(a byte) bool {
	return p[0] == a || p[1] == a
}

// Pick returns one allele of the pair chosen uniformly.
func (p AllelePair) Pick(rng *rand.Rand) byte {
	return p[rng.Intn(2)]
}

// Phenotype maps trait name to expressed label.
type Phenotype map[string]string

// Clone returns a copy of the phenotype.
func (p Phenotype) Clone() Phenotype {
	out := make(Phenotype, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Traits returns the trait names present in the phenotype, sorted.
func (p Phenotype) Traits() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
