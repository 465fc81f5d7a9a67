package strain

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultModel names the fallback entry of a gene model table.
const DefaultModel = "DEFAULT"

// GenotypeEffect is the phenotype one genotype class produces.
type GenotypeEffect struct {
	Phenotype   string `yaml:"phenotype"`
	Description string `yaml:"description,omitempty"`
}

// GenotypeModel maps "0", "1", "2" to phenotypes.
type GenotypeModel struct {
	Type      string                    `yaml:"type,omitempty"` // e.g. "dominant", "recessive", "additive"
	Genotypes map[string]GenotypeEffect `yaml:"genotypes"`
}

// GeneModel describes how one gene's genotypes map onto a trait.
type GeneModel struct {
	Name        string        `yaml:"name,omitempty"`
	Trait       string        `yaml:"trait"`
	Function    string        `yaml:"function,omitempty"`
	Chromosome  string        `yaml:"chromosome,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Model       GenotypeModel `yaml:"model"`
}

type geneModelFile struct {
	Genes map[string]GeneModel `yaml:"genes"`
}

// GeneModels is a gene-symbol keyed table of gene models. Lookups are
// case-insensitive. A nil *GeneModels behaves as an empty table.
type GeneModels struct {
	genes map[string]GeneModel
}

// NewGeneModels builds a table from in-memory models, dropping invalid entries.
func NewGeneModels(genes map[string]GeneModel) *GeneModels {
	t := &GeneModels{genes: make(map[string]GeneModel, len(genes))}
	for name, g := range genes {
		t.genes[strings.ToUpper(name)] = sanitize(name, g)
	}
	return t
}

// ParseGeneModels decodes a YAML or JSON document with a top-level "genes" key.
// Unknown fields are rejected.
func ParseGeneModels(data []byte) (*GeneModels, error) {
	var f geneModelFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing gene models: %w", err)
	}
	return NewGeneModels(f.Genes), nil
}

// LoadGeneModels reads a gene model file. A missing or unparsable file is
// logged and yields an empty table, so every lookup falls back to
// "phenotype_<gt>".
func LoadGeneModels(path string) *GeneModels {
	if path == "" {
		return NewGeneModels(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Warnf("strain: gene models %s not readable, using built-in fallback: %v", path, err)
		return NewGeneModels(nil)
	}
	t, err := ParseGeneModels(data)
	if err != nil {
		logrus.Warnf("strain: gene models %s: %v; using built-in fallback", path, err)
		return NewGeneModels(nil)
	}
	logrus.Debugf("strain: loaded %d gene models from %s", t.Len(), path)
	return t
}

// sanitize drops genotype entries whose key is not 0/1/2 or whose phenotype is empty.
func sanitize(name string, g GeneModel) GeneModel {
	clean := make(map[string]GenotypeEffect, len(g.Model.Genotypes))
	for k, eff := range g.Model.Genotypes {
		gt, err := strconv.Atoi(k)
		if err != nil || gt < 0 || gt > 2 {
			logrus.Warnf("strain: gene %s: dropping genotype key %q", name, k)
			continue
		}
		if strings.TrimSpace(eff.Phenotype) == "" {
			logrus.Warnf("strain: gene %s: dropping genotype %q with empty phenotype", name, k)
			continue
		}
		clean[strconv.Itoa(gt)] = eff
	}
	g.Model.Genotypes = clean
	return g
}

// Len returns the number of models, including DEFAULT.
func (t *GeneModels) Len() int {
	if t == nil {
		return 0
	}
	return len(t.genes)
}

// Names returns the gene symbols, sorted.
func (t *GeneModels) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.genes))
	for n := range t.genes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the model for gene, falling back to DEFAULT.
func (t *GeneModels) Lookup(gene string) (GeneModel, bool) {
	if t == nil {
		return GeneModel{}, false
	}
	if g, ok := t.genes[strings.ToUpper(gene)]; ok {
		return g, true
	}
	g, ok := t.genes[DefaultModel]
	return g, ok
}

// Trait returns the trait the gene drives, or "unknown".
func (t *GeneModels) Trait(gene string) string {
	g, ok := t.Lookup(gene)
	if !ok || g.Trait == "" {
		return "unknown"
	}
	return g.Trait
}

// Phenotype maps a genotype through the named model. Unmapped genotypes
// produce "phenotype_<gt>".
func (t *GeneModels) Phenotype(model string, gt int) string {
	g, ok := t.Lookup(model)
	if ok {
		if eff, ok := g.Model.Genotypes[strconv.Itoa(gt)]; ok {
			return eff.Phenotype
		}
	}
	return fmt.Sprintf("phenotype_%d", gt)
}
