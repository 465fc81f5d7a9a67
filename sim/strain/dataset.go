// Package strain loads real inbred-strain genotype and phenotype tables and
// maps strain genotypes at variable loci onto trait phenotypes.
//
// Data issues never abort a run: missing files and malformed rows are logged
// with logrus and skipped, leaving the affected tables empty.
package strain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocusKey identifies a genomic position.
type LocusKey struct {
	Chr string
	Pos int
}

func (k LocusKey) String() string {
	return fmt.Sprintf("%s:%d", k.Chr, k.Pos)
}

// Less orders keys by chromosome name, then position.
func (k LocusKey) Less(o LocusKey) bool {
	if k.Chr != o.Chr {
		return k.Chr < o.Chr
	}
	return k.Pos < o.Pos
}

// Genotypes maps a locus to its 0/1/2 minor-allele count.
type Genotypes map[LocusKey]int

// Clone returns a copy of the map.
func (g Genotypes) Clone() Genotypes {
	out := make(Genotypes, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// SortedKeys returns the loci in (chr, pos) order.
func (g Genotypes) SortedKeys() []LocusKey {
	keys := make([]LocusKey, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Dataset holds per-strain genotypes and phenotypes.
type Dataset struct {
	Geno     map[string]Genotypes         // strain -> locus -> 0/1/2
	Pheno    map[string]map[string]string // strain -> trait -> label
	GenoPath string                       // genotype file path; its base name carries the gene symbol
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Geno:  make(map[string]Genotypes),
		Pheno: make(map[string]map[string]string),
	}
}

// LoadDataset reads the genotype CSV (strain,chr,pos,genotype_012) and the
// optional phenotype CSV (strain,coat_color). Empty paths are skipped.
func LoadDataset(genoPath, phenoPath string) *Dataset {
	ds := NewDataset()
	ds.GenoPath = genoPath
	if genoPath != "" {
		if err := readCSV(genoPath, []string{"strain", "chr", "pos", "genotype_012"}, ds.addGenoRow); err != nil {
			logrus.Warnf("strain: genotypes %s: %v", genoPath, err)
		}
	}
	if phenoPath != "" {
		if err := readCSV(phenoPath, []string{"strain"}, ds.addPhenoRow); err != nil {
			logrus.Warnf("strain: phenotypes %s: %v", phenoPath, err)
		}
	}
	logrus.Debugf("strain: loaded %d genotyped strains, %d phenotyped strains", len(ds.Geno), len(ds.Pheno))
	return ds
}

// Strains returns the genotyped strain names, sorted.
func (d *Dataset) Strains() []string {
	names := make([]string, 0, len(d.Geno))
	for s := range d.Geno {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// HasStrain reports whether the strain has genotype data.
func (d *Dataset) HasStrain(name string) bool {
	_, ok := d.Geno[name]
	return ok
}

// SetGenotype records one genotype value.
func (d *Dataset) SetGenotype(strain string, key LocusKey, gt int) {
	m, ok := d.Geno[strain]
	if !ok {
		m = make(Genotypes)
		d.Geno[strain] = m
	}
	m[key] = gt
}

func (d *Dataset) addGenoRow(row map[string]string, line int) error {
	pos, err := strconv.Atoi(strings.TrimSpace(row["pos"]))
	if err != nil {
		return fmt.Errorf("line %d: pos %q: %w", line, row["pos"], err)
	}
	gt, err := strconv.Atoi(strings.TrimSpace(row["genotype_012"]))
	if err != nil {
		return fmt.Errorf("line %d: genotype_012 %q: %w", line, row["genotype_012"], err)
	}
	if gt < 0 || gt > 2 {
		return fmt.Errorf("line %d: genotype_012 must be 0, 1 or 2, got %d", line, gt)
	}
	d.SetGenotype(strings.TrimSpace(row["strain"]), LocusKey{Chr: strings.TrimSpace(row["chr"]), Pos: pos}, gt)
	return nil
}

func (d *Dataset) addPhenoRow(row map[string]string, line int) error {
	s := strings.TrimSpace(row["strain"])
	if s == "" {
		return fmt.Errorf("line %d: empty strain", line)
	}
	traits, ok := d.Pheno[s]
	if !ok {
		traits = make(map[string]string)
		d.Pheno[s] = traits
	}
	if v := strings.ToLower(strings.TrimSpace(row["coat_color"])); v != "" {
		traits["coat_color"] = v
	}
	return nil
}

// readCSV streams header-keyed rows to fn. Rows fn rejects are logged and skipped.
func readCSV(path string, required []string, fn func(row map[string]string, line int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	for _, col := range required {
		found := false
		for _, h := range header {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("missing column %q", col)
		}
	}

	line := 1
	for {
		rec, err := r.Read()
		line++
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			logrus.Warnf("strain: %s: skipping line %d: %v", filepath.Base(path), line, err)
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		if err := fn(row, line); err != nil {
			logrus.Warnf("strain: %s: skipping %v", filepath.Base(path), err)
		}
	}
}

var genePattern = regexp.MustCompile(`snp[_-]([A-Za-z0-9]+)`)

// UnknownGene is reported when no gene symbol can be derived from a path.
const UnknownGene = "UNKNOWN"

// GeneFromPath extracts the gene symbol from a genotype file name such as
// "snp_TYRP1.csv" or "snp-mc1r_chr8.csv".
func GeneFromPath(path string) string {
	if path == "" {
		return UnknownGene
	}
	m := genePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return UnknownGene
	}
	return strings.ToUpper(m[1])
}
