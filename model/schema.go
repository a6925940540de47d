package model

import (
	"bytes"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/lens"
	"github.com/teranos/fedlens/rdf"
	"github.com/teranos/fedlens/version"
)

// Schema declares model types as data:
//
//	requires: ">= 0.1.0"
//	prefixes:
//	  ex: http://example.org/ns#
//	models:
//	  - name: document
//	    attributes:
//	      - name: title
//	        predicate: dc11:title
//	        required: true
//	      - name: subjects
//	        predicate: dc:subject
//	        multiple: true
//	      - name: primary_id
//	        path:
//	          - dc11:relation
//	          - first
//	          - literal_to_string
//	          - as_dom
//	          - tagged_node: {root: relationships, element: relationship, attr: type, value: primary}
//
// An attribute gives either a predicate, read as one string or, with
// multiple, as a list of strings, or an explicit path of lens segments.
type Schema struct {
	Requires string            `yaml:"requires,omitempty"`
	Prefixes map[string]string `yaml:"prefixes,omitempty"`
	Models   []ModelSchema     `yaml:"models"`
}

// ModelSchema declares one model type.
type ModelSchema struct {
	Name       string            `yaml:"name"`
	Extends    string            `yaml:"extends,omitempty"`
	Attributes []AttributeSchema `yaml:"attributes"`
}

// AttributeSchema declares one attribute.
type AttributeSchema struct {
	Name      string      `yaml:"name"`
	Predicate string      `yaml:"predicate,omitempty"`
	Multiple  bool        `yaml:"multiple,omitempty"`
	Required  bool        `yaml:"required,omitempty"`
	Path      []yaml.Node `yaml:"path,omitempty"`
}

// predicateSchema is the mapping form of a predicate segment.
type predicateSchema struct {
	IRI      string           `yaml:"iri"`
	Lang     string           `yaml:"lang"`
	Datatype string           `yaml:"datatype"`
	Prefix   string           `yaml:"prefix"`
	Kind     string           `yaml:"kind"`
	Not      *predicateSchema `yaml:"not"`
}

type taggedNodeSchema struct {
	Root    string `yaml:"root"`
	Element string `yaml:"element"`
	Attr    string `yaml:"attr"`
	Value   string `yaml:"value"`
}

// ParseSchema decodes a YAML schema. Unknown keys are rejected.
func ParseSchema(data []byte) (*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.NewInvalidRequestError("empty schema")
		}
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "failed to parse schema: %v", err)
	}
	return &s, nil
}

// LoadSchema reads and parses the schema file at path.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema %s", path)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	return s, nil
}

// Build declares every model of s and registers it with store. Models may
// extend models declared later in the file. store binds load_model and
// load_or_build_resource segments; its session is only used when those
// lenses run.
func (s *Schema) Build(store *Store) ([]*Registry, error) {
	if err := version.Satisfies(version.Version, s.Requires); err != nil {
		return nil, err
	}
	if len(s.Models) == 0 {
		return nil, errors.NewInvalidRequestError("schema declares no models")
	}

	b := &builder{
		schema:   s,
		store:    store,
		byName:   map[string]*ModelSchema{},
		built:    map[string]*Registry{},
		visiting: map[string]bool{},
	}
	for i := range s.Models {
		m := &s.Models[i]
		if m.Name == "" {
			return nil, errors.NewInvalidRequestError("model %d has no name", i)
		}
		if _, dup := b.byName[m.Name]; dup {
			return nil, errors.NewInvalidRequestError("model %q declared twice", m.Name)
		}
		b.byName[m.Name] = m
	}

	out := make([]*Registry, 0, len(s.Models))
	for _, m := range s.Models {
		r, err := b.model(m.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	for _, ref := range b.modelRefs {
		if _, ok := b.built[ref]; !ok {
			return nil, errors.NewInvalidRequestError("load_model refers to unknown model %q", ref)
		}
	}
	if store != nil {
		for _, r := range out {
			if err := store.Register(r); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

type builder struct {
	schema    *Schema
	store     *Store
	byName    map[string]*ModelSchema
	built     map[string]*Registry
	visiting  map[string]bool
	modelRefs []string
}

func (b *builder) model(name string) (*Registry, error) {
	if r, ok := b.built[name]; ok {
		return r, nil
	}
	m, ok := b.byName[name]
	if !ok {
		return nil, errors.NewInvalidRequestError("unknown model %q", name)
	}
	if b.visiting[name] {
		return nil, errors.NewInvalidRequestError("model %q extends itself", name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	var r *Registry
	if m.Extends != "" {
		parent, err := b.model(m.Extends)
		if err != nil {
			return nil, errors.Wrapf(err, "model %q", name)
		}
		r = parent.Extend(name)
	} else {
		r = NewRegistry(name)
	}

	for _, a := range m.Attributes {
		path, err := b.path(a)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", name, a.Name)
		}
		if _, err := r.Declare(a.Name, path...); err != nil {
			return nil, err
		}
		if a.Required {
			if err := r.Require(a.Name); err != nil {
				return nil, err
			}
		}
	}
	b.built[name] = r
	return r, nil
}

func (b *builder) path(a AttributeSchema) ([]any, error) {
	switch {
	case a.Predicate != "" && len(a.Path) > 0:
		return nil, errors.NewInvalidRequestError("give either predicate or path, not both")
	case a.Predicate != "":
		iri, err := b.iri(a.Predicate)
		if err != nil {
			return nil, err
		}
		if a.Multiple {
			return []any{iri, lens.LiteralsToStrings()}, nil
		}
		return []any{iri, lens.First(), lens.LiteralToString()}, nil
	case len(a.Path) > 0:
		if a.Multiple {
			return nil, errors.NewInvalidRequestError("multiple only applies to the predicate form")
		}
		path := make([]any, 0, len(a.Path))
		for i := range a.Path {
			seg, err := b.segment(&a.Path[i])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", a.Path[i].Line)
			}
			path = append(path, seg)
		}
		return path, nil
	}
	return nil, errors.NewInvalidRequestError("no predicate or path")
}

func (b *builder) segment(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return b.scalarSegment(node.Value)
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, errors.NewInvalidRequestError("a lens mapping takes exactly one key")
		}
		return b.mappingSegment(node.Content[0].Value, node.Content[1])
	}
	return nil, errors.NewInvalidRequestError("a path segment is a lens name, an IRI or a one-key mapping")
}

func (b *builder) scalarSegment(name string) (any, error) {
	switch name {
	case "identity":
		return lens.Identity(), nil
	case "first":
		return lens.First(), nil
	case "literal_to_string":
		return lens.LiteralToString(), nil
	case "literals_to_strings":
		return lens.LiteralsToStrings(), nil
	case "as_dom":
		return lens.AsDom(), nil
	case "uris_to_ids":
		if b.store == nil || b.store.BaseURL() == "" {
			return nil, errors.NewInvalidRequestError("uris_to_ids needs a repository base URL; give a prefix")
		}
		return lens.UrisToIds(b.store.BaseURL()), nil
	case "load_or_build_resource":
		if b.store == nil {
			return nil, errors.NewInvalidRequestError("load_or_build_resource needs a store")
		}
		return lens.LoadOrBuildResource(b.store.Session()), nil
	}
	if strings.Contains(name, ":") {
		return b.iri(name)
	}
	return nil, errors.NewInvalidRequestError("unknown lens %q", name)
}

func (b *builder) mappingSegment(key string, value *yaml.Node) (any, error) {
	switch key {
	case "at_css":
		if err := lens.ValidateSelector(value.Value); err != nil {
			return nil, errors.Mark(err, errors.ErrInvalidRequest)
		}
		return lens.AtCss(value.Value), nil

	case "uris_to_ids":
		if value.Value == "" {
			return nil, errors.NewInvalidRequestError("uris_to_ids needs a prefix")
		}
		return lens.UrisToIds(value.Value), nil

	case "load_model":
		if b.store == nil {
			return nil, errors.NewInvalidRequestError("load_model needs a store")
		}
		if value.Value == "" {
			return nil, errors.NewInvalidRequestError("load_model needs a model name")
		}
		b.modelRefs = append(b.modelRefs, value.Value)
		return lens.LoadModel(value.Value, b.store), nil

	case "tagged_node":
		var tn taggedNodeSchema
		if err := decodeStrict(value, &tn); err != nil {
			return nil, err
		}
		if tn.Root == "" || tn.Element == "" {
			return nil, errors.NewInvalidRequestError("tagged_node needs root and element")
		}
		return lens.TaggedNode(tn.Root, tn.Element, tn.Attr, tn.Value), nil

	case "predicate":
		var ps predicateSchema
		if value.Kind == yaml.ScalarNode {
			ps.IRI = value.Value
		} else if err := decodeStrict(value, &ps); err != nil {
			return nil, err
		}
		iri, err := b.iri(ps.IRI)
		if err != nil {
			return nil, err
		}
		selectors, err := b.selectors(&ps)
		if err != nil {
			return nil, err
		}
		return lens.GetPredicate(iri, selectors...), nil
	}
	return nil, errors.NewInvalidRequestError("unknown lens %q", key)
}

func (b *builder) selectors(ps *predicateSchema) ([]lens.Selector, error) {
	var out []lens.Selector
	if ps.Lang != "" {
		out = append(out, lens.SelectLanguage(ps.Lang))
	}
	if ps.Datatype != "" {
		dt, err := b.iri(ps.Datatype)
		if err != nil {
			return nil, err
		}
		out = append(out, lens.SelectDatatype(dt))
	}
	if ps.Prefix != "" {
		out = append(out, lens.SelectPrefix(string(b.expand(ps.Prefix))))
	}
	if ps.Kind != "" {
		k, err := termKind(ps.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, lens.SelectKind(k))
	}
	if ps.Not != nil {
		if ps.Not.IRI != "" || ps.Not.Not != nil {
			return nil, errors.NewInvalidRequestError("not takes one condition")
		}
		inner, err := b.selectors(ps.Not)
		if err != nil {
			return nil, err
		}
		if len(inner) != 1 {
			return nil, errors.NewInvalidRequestError("not takes one condition")
		}
		out = append(out, lens.SelectNot(inner[0]))
	}
	return out, nil
}

// iri expands a prefixed name, failing on names that stay relative.
func (b *builder) iri(name string) (rdf.IRI, error) {
	iri := b.expand(name)
	if !strings.Contains(string(iri), "://") && !strings.HasPrefix(string(iri), "urn:") {
		return "", errors.NewInvalidRequestError("%q is not an absolute IRI or a known prefixed name", name)
	}
	return iri, nil
}

// expand resolves name against the schema prefixes, then the built-in
// ones.
func (b *builder) expand(name string) rdf.IRI {
	if prefix, local, ok := strings.Cut(name, ":"); ok && !strings.HasPrefix(local, "//") {
		if ns, known := b.schema.Prefixes[prefix]; known {
			return rdf.IRI(ns + local)
		}
	}
	return rdf.ExpandIRI(name)
}

func termKind(s string) (rdf.TermKind, error) {
	switch s {
	case "iri":
		return rdf.KindIRI, nil
	case "literal":
		return rdf.KindLiteral, nil
	case "blank":
		return rdf.KindBlank, nil
	}
	return 0, errors.NewInvalidRequestError("unknown term kind %q", s)
}

func decodeStrict(node *yaml.Node, out any) error {
	if node.Kind != yaml.MappingNode {
		return errors.NewInvalidRequestError("expected a mapping at line %d", node.Line)
	}
	// Node.Decode has no KnownFields switch, so round-trip through a
	// strict decoder.
	data, err := yaml.Marshal(node)
	if err != nil {
		return errors.Wrap(err, "failed to re-encode segment")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "line %d: %v", node.Line, err)
	}
	return nil
}
