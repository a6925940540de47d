package rdf

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	krdf "github.com/knakk/rdf"

	"github.com/teranos/fedlens/errors"
)

// MediaTypeNTriples is the content type exchanged with LDP repositories.
const MediaTypeNTriples = "application/n-triples"

var (
	// ErrSyntax is returned for malformed N-Triples input.
	ErrSyntax = errors.New("n-triples syntax error")

	// ErrInvalidIRI is returned for an IRI that cannot be written as an
	// N-Triples IRI reference (spaces, angle brackets, quotes and the like).
	ErrInvalidIRI = errors.New("invalid IRI")
)

// ValidateIRI reports whether s can be serialized as an IRI reference.
func ValidateIRI(s string) error {
	_, err := toIRI(IRI(s))
	return err
}

// EncodeNTriples writes the graph as N-Triples in insertion order. The
// empty IRI, the subject of a resource not yet created, is written as <>.
func EncodeNTriples(w io.Writer, g *Graph) error {
	enc := krdf.NewTripleEncoder(w, krdf.NTriples)
	for _, t := range g.Triples() {
		kt, err := toTriple(t)
		if err != nil {
			return err
		}
		if err := enc.Encode(kt); err != nil {
			return errors.Wrap(err, "failed to write triple")
		}
	}
	return errors.Wrap(enc.Close(), "failed to flush n-triples")
}

// MarshalNTriples returns the N-Triples serialization of g.
func MarshalNTriples(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeNTriples(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeNTriples parses N-Triples from r into a new graph. Blank lines and
// comment lines are skipped, and each remaining line must hold exactly one
// triple.
func DecodeNTriples(r io.Reader) (*Graph, error) {
	return decode(r, "")
}

// DecodeNTriplesBase is DecodeNTriples for a body posted to an LDP
// container: a <> subject or object refers to the resource being created
// and is resolved to base.
func DecodeNTriplesBase(r io.Reader, base IRI) (*Graph, error) {
	return decode(r, base)
}

// UnmarshalNTriples parses an N-Triples document held in memory.
func UnmarshalNTriples(data []byte) (*Graph, error) {
	return DecodeNTriples(bytes.NewReader(data))
}

func decode(r io.Reader, base IRI) (*Graph, error) {
	g := NewGraph()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if base != "" {
			line = resolveRelative(line, base)
		}
		t, err := parseTriple(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		g.Insert(t)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read n-triples")
	}
	return g, nil
}

func resolveRelative(line string, base IRI) string {
	abs := "<" + string(base) + ">"
	if rest, ok := strings.CutPrefix(line, "<>"); ok {
		line = abs + rest
	}
	if body, ok := strings.CutSuffix(line, "."); ok {
		if head, ok := strings.CutSuffix(strings.TrimSpace(body), "<>"); ok {
			line = head + abs + " ."
		}
	}
	return line
}

func parseTriple(line string) (Triple, error) {
	dec := krdf.NewTripleDecoder(strings.NewReader(line+"\n"), krdf.NTriples)
	kt, err := dec.Decode()
	if err != nil {
		return Triple{}, errors.Wrapf(ErrSyntax, "%v", err)
	}
	if _, err := dec.Decode(); err != io.EOF {
		return Triple{}, errors.Wrap(ErrSyntax, "trailing input after '.'")
	}

	subject, err := fromTerm(kt.Subj)
	if err != nil {
		return Triple{}, err
	}
	object, err := fromTerm(kt.Obj)
	if err != nil {
		return Triple{}, err
	}
	pred, err := fromTerm(kt.Pred)
	if err != nil {
		return Triple{}, err
	}
	predicate, ok := pred.(IRI)
	if !ok {
		return Triple{}, errors.Wrap(ErrSyntax, "predicate must be an IRI")
	}
	if subject.Kind() == KindLiteral {
		return Triple{}, errors.Wrap(ErrSyntax, "literal in subject position")
	}
	return Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}

// MarshalTerm renders a single term in N-Triples syntax. A nil term is
// the empty IRI.
func MarshalTerm(t Term) (string, error) {
	o, err := toObject(t)
	if err != nil {
		return "", err
	}
	return o.Serialize(krdf.NTriples), nil
}

// FormatTerm is MarshalTerm for display. A term that cannot be serialized
// is shown as a quoted string.
func FormatTerm(t Term) string {
	s, err := MarshalTerm(t)
	if err != nil {
		return strconv.Quote(t.String())
	}
	return s
}

// ParseTerm parses a single term in N-Triples syntax, the inverse of
// MarshalTerm.
func ParseTerm(s string) (Term, error) {
	t, err := parseTriple("<urn:fedlens:s> <urn:fedlens:p> " + strings.TrimSpace(s) + " .")
	if err != nil {
		return nil, errors.Wrapf(err, "term %q", s)
	}
	return t.Object, nil
}

func toTriple(t Triple) (krdf.Triple, error) {
	s, err := toSubject(t.Subject)
	if err != nil {
		return krdf.Triple{}, err
	}
	p, err := toIRI(t.Predicate)
	if err != nil {
		return krdf.Triple{}, err
	}
	o, err := toObject(t.Object)
	if err != nil {
		return krdf.Triple{}, err
	}
	return krdf.Triple{Subj: s, Pred: p, Obj: o}, nil
}

func toIRI(iri IRI) (krdf.IRI, error) {
	if iri == "" {
		return krdf.IRI{}, nil
	}
	k, err := krdf.NewIRI(string(iri))
	if err != nil {
		return krdf.IRI{}, errors.Wrapf(ErrInvalidIRI, "%q: %v", string(iri), err)
	}
	return k, nil
}

func toBlank(b Blank) (krdf.Blank, error) {
	k, err := krdf.NewBlank(string(b))
	if err != nil {
		return krdf.Blank{}, errors.Wrapf(err, "blank node %q", string(b))
	}
	return k, nil
}

func toSubject(t Term) (krdf.Subject, error) {
	switch v := t.(type) {
	case nil:
		return krdf.IRI{}, nil
	case IRI:
		return toIRI(v)
	case Blank:
		return toBlank(v)
	default:
		return nil, errors.Newf("invalid subject %v", t)
	}
}

func toObject(t Term) (krdf.Object, error) {
	switch v := t.(type) {
	case nil:
		return krdf.IRI{}, nil
	case IRI:
		return toIRI(v)
	case Blank:
		return toBlank(v)
	case Literal:
		switch {
		case v.Lang != "":
			l, err := krdf.NewLangLiteral(v.Value, v.Lang)
			if err != nil {
				return nil, errors.Wrapf(err, "language tag %q", v.Lang)
			}
			return l, nil
		case v.Datatype != "":
			dt, err := toIRI(v.Datatype)
			if err != nil {
				return nil, err
			}
			return krdf.NewTypedLiteral(v.Value, dt), nil
		default:
			l, err := krdf.NewLiteral(v.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "literal %q", v.Value)
			}
			return l, nil
		}
	default:
		return nil, errors.Newf("unsupported term %T", t)
	}
}

func fromTerm(t krdf.Term) (Term, error) {
	switch v := t.(type) {
	case krdf.IRI:
		return IRI(v.String()), nil
	case krdf.Blank:
		return Blank(strings.TrimPrefix(v.String(), "_:")), nil
	case krdf.Literal:
		if lang := v.Lang(); lang != "" {
			return NewLangLiteral(v.String(), lang), nil
		}
		return NewTypedLiteral(v.String(), IRI(v.DataType.String())), nil
	default:
		return nil, errors.Wrapf(ErrSyntax, "unsupported term %T", t)
	}
}
