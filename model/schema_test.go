package model_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/ldp/ldptest"
	"github.com/teranos/fedlens/lens"
	"github.com/teranos/fedlens/model"
	"github.com/teranos/fedlens/rdf"
)

const testSchema = `
requires: ">= 0.1.0"
prefixes:
  ex: http://example.org/ns#
models:
  - name: document
    extends: base
    attributes:
      - name: subjects
        predicate: dc:subject
        multiple: true
      - name: title_en
        path:
          - predicate: {iri: dc:title, lang: en}
          - first
          - literal_to_string
      - name: title_other
        path:
          - predicate: {iri: dc:title, not: {lang: en}}
          - literals_to_strings
      - name: primary_id
        path:
          - dc11:relation
          - first
          - literal_to_string
          - as_dom
          - tagged_node: {root: relationships, element: relationship, attr: type, value: primary}
      - name: summary
        path: [ex:summary, first, literal_to_string, as_dom, {at_css: "summary > p"}]
      - name: part
        path: [ex:hasPart, uris_to_ids, first, {load_model: base}]
  - name: base
    attributes:
      - name: title
        predicate: dc11:title
        required: true
`

func buildTestSchema(t *testing.T, srv *ldptest.Server) (*model.Store, map[string]*model.Registry) {
	t.Helper()
	s, err := model.ParseSchema([]byte(testSchema))
	require.NoError(t, err)

	store := model.NewStore(ldp.NewSession(context.Background(), srv.Repository("/")), srv.BaseURL(), nil)
	regs, err := s.Build(store)
	require.NoError(t, err)

	byName := map[string]*model.Registry{}
	for _, r := range regs {
		byName[r.Name()] = r
	}
	return store, byName
}

func TestSchemaBuild(t *testing.T) {
	srv := ldptest.NewServer(t)
	store, regs := buildTestSchema(t, srv)

	assert.Equal(t, []string{"base", "document"}, store.Models())
	doc := regs["document"]
	require.NotNil(t, doc)
	assert.Same(t, regs["base"], doc.Parent())
	assert.Equal(t,
		[]string{"title", "subjects", "title_en", "title_other", "primary_id", "summary", "part"},
		doc.Names())
	assert.Equal(t, []string{"title"}, doc.Required())

	agg := doc.Aggregate()
	title, _ := agg.Lookup("title")
	assert.True(t, title.Equal(lens.Chain(lens.GetPredicate(rdf.DC11Title), lens.First(), lens.LiteralToString())))

	subjects, _ := agg.Lookup("subjects")
	assert.True(t, subjects.Equal(lens.Chain(lens.GetPredicate(rdf.DCSubject), lens.LiteralsToStrings())))

	summary, _ := agg.Lookup("summary")
	assert.Equal(t,
		"get_predicate(<http://example.org/ns#summary>) | first | literal_to_string | as_dom | at_css(summary > p)",
		summary.String())

	part, _ := agg.Lookup("part")
	assert.Equal(t, lens.KindLoadModel, lens.Parts(part)[3].Kind())
}

func TestSchemaEndToEnd(t *testing.T) {
	srv := ldptest.NewServer(t)
	_, regs := buildTestSchema(t, srv)
	doc := regs["document"]
	ctx := context.Background()
	repo := srv.Repository("/")

	subject := srv.Subject("/a")
	srv.Put("/a", rdf.NewGraph(
		rdf.Triple{Subject: subject, Predicate: rdf.DC11Title, Object: rdf.NewLiteral("Plain")},
		rdf.Triple{Subject: subject, Predicate: rdf.DCTitle, Object: rdf.NewLangLiteral("English", "en")},
		rdf.Triple{Subject: subject, Predicate: rdf.DCTitle, Object: rdf.NewLangLiteral("Français", "fr")},
		rdf.Triple{Subject: subject, Predicate: rdf.DC11Relation, Object: rdf.NewLiteral(
			`<relationships><relationship type="primary">p1</relationship></relationships>`)},
		rdf.Triple{Subject: subject, Predicate: rdf.IRI("http://example.org/ns#summary"), Object: rdf.NewLiteral(
			`<summary><p>Short</p></summary>`)},
	))

	rec, err := doc.Find(ctx, repo, "/a")
	require.NoError(t, err)
	assert.Equal(t, lens.Attributes{
		"title":       "Plain",
		"subjects":    []any{},
		"title_en":    "English",
		"title_other": []any{"Français"},
		"primary_id":  "p1",
		"summary":     "Short",
		"part":        nil,
	}, rec.Attributes())

	require.NoError(t, rec.Assign(lens.Attributes{
		"primary_id": "p2",
		"summary":    "Longer",
		"title_en":   "Anglais",
	}))
	require.NoError(t, rec.Save(ctx, repo))

	again, err := doc.Find(ctx, repo, "/a")
	require.NoError(t, err)
	assert.Equal(t, "p2", again.Get(mustLookup(t, doc, "primary_id")))
	assert.Equal(t, "Longer", again.Get(mustLookup(t, doc, "summary")))
	assert.Equal(t, "Anglais", again.Get(mustLookup(t, doc, "title_en")))
	assert.Equal(t, []any{"Français"}, again.Get(mustLookup(t, doc, "title_other")))
}

func mustLookup(t *testing.T, r *model.Registry, name string) model.Attr {
	t.Helper()
	a, ok := r.Lookup(name)
	require.True(t, ok, "attribute %s", name)
	return a
}

func TestSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		want    error
		message string
	}{
		{
			name:   "empty",
			schema: "",
			want:   errors.ErrInvalidRequest,
		},
		{
			name:    "unknown key",
			schema:  "models:\n  - name: a\n    colour: red\n",
			want:    errors.ErrInvalidRequest,
			message: "colour",
		},
		{
			name:    "no models",
			schema:  "models: []\n",
			want:    errors.ErrInvalidRequest,
			message: "no models",
		},
		{
			name:    "reserved id",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: id, predicate: dc:identifier}\n",
			want:    errors.ErrReservedAttributeName,
			message: "id",
		},
		{
			name:    "duplicate model",
			schema:  "models:\n  - {name: a, attributes: []}\n  - {name: a, attributes: []}\n",
			want:    errors.ErrInvalidRequest,
			message: "declared twice",
		},
		{
			name:    "extends unknown",
			schema:  "models:\n  - {name: a, extends: b, attributes: []}\n",
			want:    errors.ErrInvalidRequest,
			message: `unknown model "b"`,
		},
		{
			name:    "extends cycle",
			schema:  "models:\n  - {name: a, extends: b, attributes: []}\n  - {name: b, extends: a, attributes: []}\n",
			want:    errors.ErrInvalidRequest,
			message: "extends itself",
		},
		{
			name:    "predicate and path",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, predicate: dc:title, path: [first]}\n",
			want:    errors.ErrInvalidRequest,
			message: "not both",
		},
		{
			name:    "neither predicate nor path",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t}\n",
			want:    errors.ErrInvalidRequest,
			message: "no predicate or path",
		},
		{
			name:    "unknown lens",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, path: [dc:title, second]}\n",
			want:    errors.ErrInvalidRequest,
			message: `unknown lens "second"`,
		},
		{
			name:    "unknown prefix",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, predicate: nope:title}\n",
			want:    errors.ErrInvalidRequest,
			message: "nope:title",
		},
		{
			name:    "bad selector",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, path: [as_dom, {at_css: 'a, b'}]}\n",
			want:    errors.ErrInvalidRequest,
			message: "a, b",
		},
		{
			name:    "unknown load_model",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, path: [dc:relation, first, {load_model: ghost}]}\n",
			want:    errors.ErrInvalidRequest,
			message: "ghost",
		},
		{
			name:    "tagged_node without element",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, path: [as_dom, {tagged_node: {root: r}}]}\n",
			want:    errors.ErrInvalidRequest,
			message: "root and element",
		},
		{
			name:    "bad term kind",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, path: [{predicate: {iri: dc:title, kind: number}}]}\n",
			want:    errors.ErrInvalidRequest,
			message: "number",
		},
		{
			name:    "two-key segment",
			schema:  "models:\n  - name: a\n    attributes:\n      - {name: t, path: [{at_css: p, as_dom: x}]}\n",
			want:    errors.ErrInvalidRequest,
			message: "one key",
		},
		{
			name:    "bad constraint",
			schema:  "requires: 'not a version'\nmodels:\n  - {name: a, attributes: []}\n",
			want:    errors.ErrInvalidRequest,
			message: "constraint",
		},
	}

	srv := ldptest.NewServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := model.NewStore(ldp.NewSession(context.Background(), srv.Repository("/")), srv.BaseURL(), nil)
			s, err := model.ParseSchema([]byte(tt.schema))
			if err == nil {
				_, err = s.Build(store)
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o644))

	s, err := model.LoadSchema(path)
	require.NoError(t, err)
	assert.Len(t, s.Models, 2)
	assert.Equal(t, "http://example.org/ns#", s.Prefixes["ex"])

	_, err = model.LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSchemaBuildWithoutStore(t *testing.T) {
	s, err := model.ParseSchema([]byte("models:\n  - name: a\n    attributes:\n      - {name: t, predicate: dc:title}\n"))
	require.NoError(t, err)
	regs, err := s.Build(nil)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, []string{"t"}, regs[0].Names())

	s, err = model.ParseSchema([]byte("models:\n  - name: a\n    attributes:\n      - {name: t, path: [dc:relation, uris_to_ids]}\n"))
	require.NoError(t, err)
	_, err = s.Build(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
