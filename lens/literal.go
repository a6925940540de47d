package lens

import (
	"strings"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/rdf"
)

// termString returns the lexical form of t: the value of a literal, the
// IRI of an IRI and the _:label of a blank node.
func termString(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.Literal:
		return v.Value
	case rdf.IRI:
		return string(v)
	case rdf.Blank:
		return "_:" + string(v)
	}
	return ""
}

type literalToString struct{}

// LiteralToString maps an RDF term to its lexical form.
//
// Put is source dependent: when the source is a literal the new literal
// keeps its language tag and datatype, so editing a title tagged @en keeps
// the tag. Any other source yields a plain literal, as does Create.
func LiteralToString() Lens { return literalToString{} }

func (l literalToString) Get(source any) (any, error) {
	if source == nil {
		return nil, nil
	}
	t, ok := source.(rdf.Term)
	if !ok {
		return nil, mismatch(l, "source", "an RDF term", source)
	}
	return termString(t), nil
}

func (l literalToString) Put(source, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, mismatch(l, "value", "a string", value)
	}
	if lit, ok := source.(rdf.Literal); ok {
		return rdf.Literal{Value: s, Lang: lit.Lang, Datatype: lit.Datatype}, nil
	}
	return rdf.NewLiteral(s), nil
}

func (l literalToString) Create(value any) (any, error) {
	return l.Put(nil, value)
}

func (literalToString) Kind() Kind     { return KindLiteralToString }
func (literalToString) String() string { return "literal_to_string" }

func (literalToString) Equal(other Lens) bool {
	_, ok := other.(literalToString)
	return ok
}

type literalsToStrings struct{}

// LiteralsToStrings is LiteralToString over a sequence. Put and Create
// rebuild plain literals from the new strings and ignore the source, so
// language tags and datatypes of the old values are dropped.
func LiteralsToStrings() Lens { return literalsToStrings{} }

func (l literalsToStrings) Get(source any) (any, error) {
	seq, ok := sequence(source)
	if !ok {
		return nil, mismatch(l, "source", "a sequence", source)
	}
	out := make([]any, 0, len(seq))
	for _, item := range seq {
		if item == nil {
			continue
		}
		t, ok := item.(rdf.Term)
		if !ok {
			return nil, mismatch(l, "element", "an RDF term", item)
		}
		out = append(out, termString(t))
	}
	return out, nil
}

func (l literalsToStrings) Put(_ any, value any) (any, error) {
	return l.Create(value)
}

func (l literalsToStrings) Create(value any) (any, error) {
	seq, ok := sequence(value)
	if !ok {
		return nil, mismatch(l, "value", "a sequence of strings", value)
	}
	out := make([]any, 0, len(seq))
	for _, item := range seq {
		if item == nil {
			continue
		}
		s, ok := item.(string)
		if !ok {
			return nil, mismatch(l, "element", "a string", item)
		}
		out = append(out, rdf.NewLiteral(s))
	}
	return out, nil
}

func (literalsToStrings) Kind() Kind     { return KindLiteralsToStrings }
func (literalsToStrings) String() string { return "literals_to_strings" }

func (literalsToStrings) Equal(other Lens) bool {
	_, ok := other.(literalsToStrings)
	return ok
}

type urisToIds struct {
	prefix string
}

// UrisToIds maps a sequence of IRIs to identifiers by stripping prefix,
// the repository host and base path. Put and Create prepend it again.
// Nil and empty entries are dropped. IRIs outside prefix pass through
// whole, and identifiers containing "://" are taken as absolute IRIs.
// Put and Create reject an identifier that does not form a valid IRI
// with rdf.ErrInvalidIRI.
func UrisToIds(prefix string) Lens {
	return urisToIds{prefix: strings.TrimSuffix(prefix, "/")}
}

func (l urisToIds) Get(source any) (any, error) {
	seq, ok := sequence(source)
	if !ok {
		return nil, mismatch(l, "source", "a sequence", source)
	}
	out := make([]any, 0, len(seq))
	for _, item := range seq {
		var iri string
		switch v := item.(type) {
		case nil:
			continue
		case rdf.IRI:
			iri = string(v)
		case string:
			iri = v
		default:
			return nil, mismatch(l, "element", "an IRI", item)
		}
		if iri == "" {
			continue
		}
		if rest, found := strings.CutPrefix(iri, l.prefix); found && strings.HasPrefix(rest, "/") {
			iri = rest
		}
		out = append(out, iri)
	}
	return out, nil
}

func (l urisToIds) Put(_ any, value any) (any, error) {
	return l.Create(value)
}

func (l urisToIds) Create(value any) (any, error) {
	seq, ok := sequence(value)
	if !ok {
		return nil, mismatch(l, "value", "a sequence of ids", value)
	}
	out := make([]any, 0, len(seq))
	for _, item := range seq {
		if item == nil {
			continue
		}
		id, ok := item.(string)
		if !ok {
			return nil, mismatch(l, "element", "a string", item)
		}
		if id == "" {
			continue
		}
		iri := rdf.IRI(id)
		if !strings.Contains(id, "://") {
			iri = rdf.IRI(l.prefix + "/" + strings.TrimPrefix(id, "/"))
		}
		if err := rdf.ValidateIRI(string(iri)); err != nil {
			return nil, errors.Wrapf(err, "%s: id %q", l, id)
		}
		out = append(out, iri)
	}
	return out, nil
}

func (urisToIds) Kind() Kind       { return KindUrisToIds }
func (l urisToIds) String() string { return "uris_to_ids(" + l.prefix + ")" }

func (l urisToIds) Equal(other Lens) bool {
	o, ok := other.(urisToIds)
	return ok && o.prefix == l.prefix
}
