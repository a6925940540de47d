// Package ldp talks to Linked Data Platform repositories such as Fedora 4.
//
// A Resource is the local handle on one repository resource: its subject
// IRI, repository identifier, RDF graph and ETag. Repositories load and
// persist resources; lenses read and mutate their graphs in between.
package ldp

import (
	"github.com/teranos/fedlens/rdf"
)

// NewSubject is the subject of a resource that has not been persisted yet.
// It serializes as <> and is rebased onto the assigned IRI on create.
const NewSubject = rdf.IRI("")

// Resource is a repository resource held in memory.
//
// Resource is not safe for concurrent mutation; one model operation owns a
// resource at a time.
type Resource struct {
	id      string
	subject rdf.IRI
	graph   *rdf.Graph
	etag    string
}

// NewResource returns an empty, unsaved resource.
func NewResource() *Resource {
	return &Resource{subject: NewSubject, graph: rdf.NewGraph()}
}

// NewResourceWithGraph returns an unsaved resource whose graph is g.
// Triples in g should use NewSubject as subject.
func NewResourceWithGraph(g *rdf.Graph) *Resource {
	if g == nil {
		g = rdf.NewGraph()
	}
	return &Resource{subject: NewSubject, graph: g}
}

// LoadedResource builds a handle for a resource read from a repository.
func LoadedResource(id string, subject rdf.IRI, g *rdf.Graph, etag string) *Resource {
	if g == nil {
		g = rdf.NewGraph()
	}
	return &Resource{id: id, subject: subject, graph: g, etag: etag}
}

// ID returns the repository identifier, or "" for an unsaved resource.
func (r *Resource) ID() string { return r.id }

// Subject returns the subject IRI of the resource.
func (r *Resource) Subject() rdf.Term { return r.subject }

// SubjectIRI is Subject without the interface conversion.
func (r *Resource) SubjectIRI() rdf.IRI { return r.subject }

// ETag returns the entity tag seen when the resource was last read or written.
func (r *Resource) ETag() string { return r.etag }

// IsNew reports whether the resource has never been persisted.
func (r *Resource) IsNew() bool { return r.id == "" }

// Graph returns the backing graph. Mutations through it are visible to the
// resource.
func (r *Resource) Graph() *rdf.Graph { return r.graph }

// Query returns the objects of (subject, predicate) in insertion order.
func (r *Resource) Query(predicate rdf.IRI) []rdf.Term {
	return r.graph.Objects(r.subject, predicate)
}

// Value returns the first object of (subject, predicate), or nil.
func (r *Resource) Value(predicate rdf.IRI) rdf.Term {
	objects := r.Query(predicate)
	if len(objects) == 0 {
		return nil
	}
	return objects[0]
}

// Insert adds (subject, predicate, object).
func (r *Resource) Insert(predicate rdf.IRI, object rdf.Term) {
	r.graph.Insert(rdf.Triple{Subject: r.subject, Predicate: predicate, Object: object})
}

// Delete removes (subject, predicate, object); a nil object removes every
// value of predicate.
func (r *Resource) Delete(predicate rdf.IRI, object rdf.Term) {
	r.graph.Delete(r.subject, predicate, object)
}

// Clone returns a deep copy of the resource.
func (r *Resource) Clone() *Resource {
	return &Resource{id: r.id, subject: r.subject, graph: r.graph.Clone(), etag: r.etag}
}

// Equal reports whether both resources have the same identity and graph.
// ETags are ignored.
func (r *Resource) Equal(other *Resource) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.id == other.id && r.subject == other.subject && r.graph.Equal(other.graph)
}

// String returns the subject IRI, for logs.
func (r *Resource) String() string {
	subject := string(r.subject)
	if subject == "" {
		subject = "<new>"
	}
	return subject
}

// assign records the identity a repository gave the resource and moves the
// triples written against the old subject onto the new one.
func (r *Resource) assign(id string, subject rdf.IRI, etag string) {
	r.graph.Rebase(r.subject, subject)
	r.id = id
	r.subject = subject
	r.etag = etag
}
