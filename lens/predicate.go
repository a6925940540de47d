package lens

import (
	"fmt"
	"strings"

	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/rdf"
)

// Selector chooses which values of a shared predicate belong to one
// attribute. Selectors compare by Name, so two selectors with the same
// name must match the same terms.
type Selector struct {
	Name  string
	Match func(rdf.Term) bool
}

// SelectFunc returns a selector backed by fn.
func SelectFunc(name string, fn func(rdf.Term) bool) Selector {
	return Selector{Name: name, Match: fn}
}

// SelectLanguage matches literals tagged lang.
func SelectLanguage(lang string) Selector {
	lang = strings.ToLower(lang)
	return Selector{Name: "lang=" + lang, Match: func(t rdf.Term) bool {
		lit, ok := t.(rdf.Literal)
		return ok && lit.Lang == lang
	}}
}

// SelectDatatype matches literals of datatype dt. rdf.XSDString selects
// plain literals.
func SelectDatatype(dt rdf.IRI) Selector {
	if dt == rdf.XSDString {
		dt = ""
	}
	return Selector{Name: "datatype=" + string(dt), Match: func(t rdf.Term) bool {
		lit, ok := t.(rdf.Literal)
		return ok && lit.Datatype == dt && lit.Lang == ""
	}}
}

// SelectKind matches terms of one kind, e.g. IRIs but not literals.
func SelectKind(k rdf.TermKind) Selector {
	return Selector{Name: fmt.Sprintf("kind=%d", k), Match: func(t rdf.Term) bool {
		return t.Kind() == k
	}}
}

// SelectPrefix matches IRIs and literals whose lexical form starts with
// prefix.
func SelectPrefix(prefix string) Selector {
	return Selector{Name: "prefix=" + prefix, Match: func(t rdf.Term) bool {
		switch v := t.(type) {
		case rdf.IRI:
			return strings.HasPrefix(string(v), prefix)
		case rdf.Literal:
			return strings.HasPrefix(v.Value, prefix)
		}
		return false
	}}
}

// SelectNot matches what s does not, so s and SelectNot(s) split a
// predicate into two disjoint, exhaustive attributes.
func SelectNot(s Selector) Selector {
	return Selector{Name: "not(" + s.Name + ")", Match: func(t rdf.Term) bool {
		return !s.Match(t)
	}}
}

type getPredicate struct {
	predicate rdf.IRI
	selectors []Selector
}

// GetPredicate focuses on the objects of (subject, predicate) in a
// Resource, as a []any of rdf.Term in insertion order.
//
// With selectors only the values matching all of them are seen and
// replaced, which lets several attributes share one predicate without
// clobbering each other. Put deletes the selected values, then inserts one
// triple per new value; a nil value is the empty sequence and so deletes.
// Values a selector would not match are rejected before anything changes.
// Create applies Put to a new ldp.Resource.
func GetPredicate(predicate rdf.IRI, selectors ...Selector) Lens {
	return getPredicate{predicate: predicate, selectors: selectors}
}

func (l getPredicate) selected(t rdf.Term) bool {
	for _, s := range l.selectors {
		if !s.Match(t) {
			return false
		}
	}
	return true
}

func (l getPredicate) resource(source any) (Resource, error) {
	r, ok := source.(Resource)
	if !ok {
		return nil, mismatch(l, "source", "a resource", source)
	}
	if res, isLDP := r.(*ldp.Resource); isLDP && res == nil {
		return nil, mismatch(l, "source", "a resource", source)
	}
	return r, nil
}

func (l getPredicate) Get(source any) (any, error) {
	r, err := l.resource(source)
	if err != nil {
		return nil, err
	}
	objects := r.Query(l.predicate)
	out := make([]any, 0, len(objects))
	for _, o := range objects {
		if l.selected(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (l getPredicate) Put(source, value any) (any, error) {
	r, err := l.resource(source)
	if err != nil {
		return nil, err
	}
	values, err := l.terms(value)
	if err != nil {
		return nil, err
	}

	if len(l.selectors) == 0 {
		r.Delete(l.predicate, nil)
	} else {
		for _, o := range r.Query(l.predicate) {
			if l.selected(o) {
				r.Delete(l.predicate, o)
			}
		}
	}
	for _, v := range values {
		r.Insert(l.predicate, v)
	}
	return r, nil
}

func (l getPredicate) terms(value any) ([]rdf.Term, error) {
	seq, ok := sequence(value)
	if !ok {
		return nil, mismatch(l, "value", "a sequence of RDF terms", value)
	}
	out := make([]rdf.Term, 0, len(seq))
	for _, item := range seq {
		if item == nil {
			continue
		}
		t, ok := item.(rdf.Term)
		if !ok {
			return nil, mismatch(l, "element", "an RDF term", item)
		}
		if !l.selected(t) {
			return nil, mismatch(l, "element", "a term its selectors match", t)
		}
		out = append(out, t)
	}
	return out, nil
}

func (l getPredicate) Create(value any) (any, error) {
	return l.Put(ldp.NewResource(), value)
}

func (getPredicate) Kind() Kind { return KindGetPredicate }

func (l getPredicate) String() string {
	if len(l.selectors) == 0 {
		return fmt.Sprintf("get_predicate(<%s>)", l.predicate)
	}
	names := make([]string, len(l.selectors))
	for i, s := range l.selectors {
		names[i] = s.Name
	}
	return fmt.Sprintf("get_predicate(<%s> %s)", l.predicate, strings.Join(names, " "))
}

func (l getPredicate) Equal(other Lens) bool {
	o, ok := other.(getPredicate)
	if !ok || o.predicate != l.predicate || len(o.selectors) != len(l.selectors) {
		return false
	}
	for i := range l.selectors {
		if o.selectors[i].Name != l.selectors[i].Name {
			return false
		}
	}
	return true
}
