package rdf

import (
	"sort"
)

// Graph is an ordered set of triples. Insertion order is preserved so that
// multi-valued properties read back in the order they were written.
//
// Graph is not safe for concurrent mutation.
type Graph struct {
	triples []Triple
	index   map[Triple]struct{}
}

// NewGraph returns a graph holding the given triples, duplicates removed.
func NewGraph(triples ...Triple) *Graph {
	g := &Graph{index: make(map[Triple]struct{}, len(triples))}
	for _, t := range triples {
		g.Insert(t)
	}
	return g
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.triples)
}

// Triples returns a copy of the triples in insertion order.
func (g *Graph) Triples() []Triple {
	if g == nil {
		return nil
	}
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Has reports whether the exact triple is present.
func (g *Graph) Has(t Triple) bool {
	if g == nil {
		return false
	}
	_, ok := g.index[t]
	return ok
}

// Objects returns the objects of all (subject, predicate, *) triples in order.
// The result is never nil.
func (g *Graph) Objects(subject Term, predicate IRI) []Term {
	out := []Term{}
	if g == nil {
		return out
	}
	for _, t := range g.triples {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	return out
}

// Predicates returns the distinct predicates used with subject, in first-use order.
func (g *Graph) Predicates(subject Term) []IRI {
	var out []IRI
	seen := make(map[IRI]bool)
	for _, t := range g.Triples() {
		if t.Subject == subject && !seen[t.Predicate] {
			seen[t.Predicate] = true
			out = append(out, t.Predicate)
		}
	}
	return out
}

// Insert adds t and reports whether it was new.
func (g *Graph) Insert(t Triple) bool {
	if g.index == nil {
		g.index = make(map[Triple]struct{})
	}
	if _, ok := g.index[t]; ok {
		return false
	}
	g.index[t] = struct{}{}
	g.triples = append(g.triples, t)
	return true
}

// Delete removes every (subject, predicate, object) triple and returns how
// many were removed. A nil object is a wildcard.
func (g *Graph) Delete(subject Term, predicate IRI, object Term) int {
	kept := g.triples[:0]
	removed := 0
	for _, t := range g.triples {
		if t.Subject == subject && t.Predicate == predicate && (object == nil || t.Object == object) {
			delete(g.index, t)
			removed++
			continue
		}
		kept = append(kept, t)
	}
	// clear the tail so removed terms are not retained
	for i := len(kept); i < len(g.triples); i++ {
		g.triples[i] = Triple{}
	}
	g.triples = kept
	return removed
}

// Rebase rewrites every occurrence of from (as subject or object) to to.
// It is used when a repository assigns the final subject of a new resource.
func (g *Graph) Rebase(from, to Term) {
	if from == to {
		return
	}
	old := g.triples
	g.triples = nil
	g.index = make(map[Triple]struct{}, len(old))
	for _, t := range old {
		if t.Subject == from {
			t.Subject = to
		}
		if t.Object == from {
			t.Object = to
		}
		g.Insert(t)
	}
}

// Clone returns an independent copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return NewGraph()
	}
	return NewGraph(g.triples...)
}

// Equal reports whether both graphs hold the same set of triples,
// regardless of order.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for _, t := range g.Triples() {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

// Canonical returns the triples as sorted N-Triples lines, suitable for
// comparing graphs in tests and logs.
func (g *Graph) Canonical() []string {
	lines := make([]string, 0, g.Len())
	for _, t := range g.Triples() {
		lines = append(lines, t.String())
	}
	sort.Strings(lines)
	return lines
}
