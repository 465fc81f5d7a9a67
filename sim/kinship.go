package sim

import "sort"

type pairKey struct {
	lo, hi int64
}

func newPairKey(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Pedigree is a lineage registry (identity → Mouse) with memoized Wright
// kinship coefficients. It only grows; a mouse once registered stays
// resolvable for kinship even after it leaves a roster.
type Pedigree struct {
	lineage map[int64]*Mouse
	memo    map[pairKey]float64
	missed  map[int64]bool // ids looked up before they were registered
}

// NewPedigree returns an empty pedigree.
func NewPedigree() *Pedigree {
	return &Pedigree{
		lineage: make(map[int64]*Mouse),
		memo:    make(map[pairKey]float64),
		missed:  make(map[int64]bool),
	}
}

// Register adds mice to the lineage. Registering an identity that an earlier
// kinship query found missing invalidates the memo.
func (p *Pedigree) Register(mice ...*Mouse) {
	stale := false
	for _, m := range mice {
		if m == nil {
			continue
		}
		p.lineage[m.ID] = m
		if p.missed[m.ID] {
			delete(p.missed, m.ID)
			stale = true
		}
	}
	if stale {
		p.memo = make(map[pairKey]float64)
	}
}

// Lookup returns the registered mouse with the given identity.
func (p *Pedigree) Lookup(id int64) (*Mouse, bool) {
	m, ok := p.lineage[id]
	return m, ok
}

// Len returns the number of registered mice.
func (p *Pedigree) Len() int {
	return len(p.lineage)
}

// Kinship returns Wright's kinship coefficient φ(i, j): the probability that
// alleles drawn at random from i and j are identical by descent.
//
//	φ(i, i) = ½(1 + F_i)
//	φ(i, j) = ½[φ(dam_x, y) + φ(sire_x, y)] recursing through x, the younger
//
// Unrelated founders have φ = 0. An identity missing from the lineage
// contributes 0 to its branch.
func (p *Pedigree) Kinship(i, j int64) float64 {
	key := newPairKey(i, j)
	if v, ok := p.memo[key]; ok {
		return v
	}
	a, okA := p.lineage[key.lo]
	b, okB := p.lineage[key.hi]
	if !okA || !okB {
		if !okA {
			p.missed[key.lo] = true
		}
		if !okB {
			p.missed[key.hi] = true
		}
		return 0
	}

	var v float64
	switch {
	case key.lo == key.hi:
		v = 0.5
		if a.Parents != nil {
			v = 0.5 * (1 + p.Kinship(a.Parents.First, a.Parents.Second))
		}
	case a.Parents == nil && b.Parents == nil:
		v = 0
	case a.Parents == nil:
		v = 0.5 * (p.Kinship(a.ID, b.Parents.First) + p.Kinship(a.ID, b.Parents.Second))
	case b.Parents == nil:
		v = 0.5 * (p.Kinship(a.Parents.First, b.ID) + p.Kinship(a.Parents.Second, b.ID))
	case a.Generation >= b.Generation:
		v = 0.5 * (p.Kinship(a.Parents.First, b.ID) + p.Kinship(a.Parents.Second, b.ID))
	default:
		v = 0.5 * (p.Kinship(a.ID, b.Parents.First) + p.Kinship(a.ID, b.Parents.Second))
	}
	p.memo[key] = v
	return v
}

// Inbreeding returns the pedigree inbreeding coefficient F = φ(dam, sire),
// 0 for founders.
func (p *Pedigree) Inbreeding(m *Mouse) float64 {
	if m == nil || m.Parents == nil {
		return 0
	}
	return p.Kinship(m.Parents.First, m.Parents.Second)
}

// Relatedness returns the additive relationship 2φ(a, b).
func (p *Pedigree) Relatedness(a, b *Mouse) float64 {
	return 2 * p.Kinship(a.ID, b.ID)
}

// Ancestors returns the identities of registered ancestors of m up to depth
// generations back (depth ≤ 0 means unbounded), sorted ascending.
func (p *Pedigree) Ancestors(m *Mouse, depth int) []int64 {
	seen := make(map[int64]bool)
	frontier := []*Mouse{m}
	for level := 1; len(frontier) > 0 && (depth <= 0 || level <= depth); level++ {
		var next []*Mouse
		for _, cur := range frontier {
			if cur.Parents == nil {
				continue
			}
			for _, id := range [2]int64{cur.Parents.First, cur.Parents.Second} {
				if seen[id] {
					continue
				}
				parent, ok := p.lineage[id]
				if !ok {
					continue
				}
				seen[id] = true
				next = append(next, parent)
			}
		}
		frontier = next
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PedigreeNode is a mouse with the pedigree trees of its registered parents.
type PedigreeNode struct {
	Mouse   *Mouse
	Parents []PedigreeNode
}

// Tree returns the pedigree of m reaching depth generations back. Parents
// missing from the registry are left out.
func (p *Pedigree) Tree(m *Mouse, depth int) PedigreeNode {
	node := PedigreeNode{Mouse: m}
	if depth <= 0 || m.Parents == nil {
		return node
	}
	for _, id := range [2]int64{m.Parents.First, m.Parents.Second} {
		if parent, ok := p.lineage[id]; ok {
			node.Parents = append(node.Parents, p.Tree(parent, depth-1))
		}
	}
	return node
}
