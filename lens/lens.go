// Package lens implements bidirectional transformations between a backing
// representation and a focused value.
//
// A Lens has three operations:
//
//	Get(source)        -> value
//	Put(source, value) -> source'
//	Create(value)      -> source
//
// Well-behaved lenses satisfy GetPut (Put(s, Get(s)) == s), PutGet
// (Get(Put(s, v)) == v) and CreateGet (Get(Create(v)) == v). The
// lens/lenstest package checks these laws.
//
// Lenses are built once, at attribute declaration time, and chained with
// Compose so one attribute name maps to a path through nested
// representations:
//
//	lens.Chain(
//	    lens.GetPredicate(rdf.DC11Relation), // resource -> []rdf.Term
//	    lens.First(),                        // []rdf.Term -> rdf.Term
//	    lens.LiteralToString(),              // rdf.Term -> string
//	    lens.AsDom(),                        // string -> *etree.Document
//	    lens.AtCss("relationship"),          // *etree.Document -> string
//	)
//
// Sequences are []any. A nil value means "no value": lenses create their
// empty representation from nil, and First treats a nil put as removing
// the slot.
//
// Lenses are immutable and safe for concurrent use. Put may mutate its
// source; callers must use the returned value.
package lens

import (
	"fmt"
	"reflect"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/rdf"
)

// Kind identifies the primitive a lens was built from.
type Kind int

const (
	KindIdentity Kind = iota
	KindFirst
	KindLiteralToString
	KindLiteralsToStrings
	KindUrisToIds
	KindAsDom
	KindAtCss
	KindTaggedNode
	KindGetPredicate
	KindLoadModel
	KindLoadOrBuildResource
	KindCompose
	KindAggregate
)

var kindNames = [...]string{
	KindIdentity:            "identity",
	KindFirst:               "first",
	KindLiteralToString:     "literal_to_string",
	KindLiteralsToStrings:   "literals_to_strings",
	KindUrisToIds:           "uris_to_ids",
	KindAsDom:               "as_dom",
	KindAtCss:               "at_css",
	KindTaggedNode:          "tagged_node",
	KindGetPredicate:        "get_predicate",
	KindLoadModel:           "load_model",
	KindLoadOrBuildResource: "load_or_build_resource",
	KindCompose:             "compose",
	KindAggregate:           "aggregate",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Lens is a bidirectional transformation.
type Lens interface {
	// Get projects a value out of source without mutating it.
	Get(source any) (any, error)

	// Put returns source updated so that Get yields value.
	Put(source, value any) (any, error)

	// Create builds a minimal source for which Get yields value.
	Create(value any) (any, error)

	// Kind names the primitive the lens was built from.
	Kind() Kind

	// Equal reports structural equality: the same kind built from equal
	// parameters.
	Equal(other Lens) bool

	fmt.Stringer
}

// Resource is the graph handle predicate lenses read and write. It is
// implemented by *ldp.Resource.
type Resource interface {
	Subject() rdf.Term
	Query(predicate rdf.IRI) []rdf.Term
	Insert(predicate rdf.IRI, object rdf.Term)
	Delete(predicate rdf.IRI, object rdf.Term)
}

// Attributes maps attribute names to values. It is the view of an
// aggregate lens.
type Attributes map[string]any

// Clone returns a shallow copy of a.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether a and b are structurally equal. Nil lenses are
// equal only to each other.
func Equal(a, b Lens) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// notImplemented reports an operation l does not support.
func notImplemented(l Lens, op string) error {
	return errors.NotImplementedf("%s: %s", l, op)
}

// mismatch reports a source or value of the wrong type.
func mismatch(l Lens, what string, want string, got any) error {
	return errors.TypeMismatchf("%s: %s must be %s, got %T", l, what, want, got)
}

// sequence coerces v to []any. nil is the empty sequence.
func sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil:
		return []any{}, true
	case []any:
		return s, true
	case []rdf.Term:
		out := make([]any, len(s))
		for i, t := range s {
			out[i] = t
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	}
	return nil, false
}

// sameParam compares construction parameters of arbitrary type. Values of
// uncomparable types are never equal.
func sameParam(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return false
}
