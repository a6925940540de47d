// Package rdf provides the RDF terms, triple graph and N-Triples codec that
// back repository resources.
//
// Terms are small comparable values: two terms are equal iff == holds, so
// they can be used as map keys and compared in tests without helpers.
package rdf

import (
	"fmt"
	"strings"

	"github.com/teranos/fedlens/errors"
)

// TermKind identifies the concrete kind of a Term.
type TermKind int

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("TermKind(%d)", int(k))
	}
}

// Term is an RDF node: an IRI, a blank node or a literal.
// String returns the IRI, the blank label or the literal's lexical form.
type Term interface {
	Kind() TermKind
	String() string
}

// IRI is an absolute resource identifier.
type IRI string

func (i IRI) Kind() TermKind { return KindIRI }
func (i IRI) String() string { return string(i) }

// HasPrefix reports whether the IRI starts with prefix.
func (i IRI) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(i), prefix)
}

// Blank is a blank node label without the "_:" prefix.
type Blank string

func (b Blank) Kind() TermKind { return KindBlank }
func (b Blank) String() string { return string(b) }

// Literal is a lexical value with an optional language tag or datatype.
// A literal with neither is untyped (xsd:string in RDF 1.1).
type Literal struct {
	Value    string
	Lang     string
	Datatype IRI
}

// NewLiteral builds an untyped literal.
func NewLiteral(value string) Literal {
	return Literal{Value: value}
}

// NewLangLiteral builds a language-tagged literal.
func NewLangLiteral(value, lang string) Literal {
	return Literal{Value: value, Lang: strings.ToLower(lang)}
}

// NewTypedLiteral builds a literal with an explicit datatype. xsd:string is
// normalised to the untyped form so both spellings compare equal.
func NewTypedLiteral(value string, datatype IRI) Literal {
	if datatype == XSDString {
		datatype = ""
	}
	return Literal{Value: value, Datatype: datatype}
}

func (l Literal) Kind() TermKind { return KindLiteral }
func (l Literal) String() string { return l.Value }

// IsPlain reports whether the literal has neither language nor datatype.
func (l Literal) IsPlain() bool {
	return l.Lang == "" && l.Datatype == ""
}

// Triple is a single subject-predicate-object statement.
type Triple struct {
	Subject   Term
	Predicate IRI
	Object    Term
}

// NewTriple builds a triple, returning an error for a literal subject or a
// nil object.
func NewTriple(subject Term, predicate IRI, object Term) (Triple, error) {
	if subject == nil || subject.Kind() == KindLiteral {
		return Triple{}, errors.Newf("invalid subject %v", subject)
	}
	if predicate == "" {
		return Triple{}, errors.New("empty predicate")
	}
	if object == nil {
		return Triple{}, errors.New("nil object")
	}
	return Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}

func (t Triple) String() string {
	return FormatTerm(t.Subject) + " " + FormatTerm(t.Predicate) + " " + FormatTerm(t.Object) + " ."
}
