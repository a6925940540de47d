package model_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/fedlens/errors"
	testdb "github.com/teranos/fedlens/internal/testing"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/ldp/ldptest"
	"github.com/teranos/fedlens/lens"
	"github.com/teranos/fedlens/model"
	"github.com/teranos/fedlens/rdf"
)

type documentModel struct {
	*model.Registry
	title    model.Attr
	subjects model.Attr
	titleEn  model.Attr
}

func newDocumentModel(t *testing.T) documentModel {
	t.Helper()
	r := model.NewRegistry("document")
	m := documentModel{
		Registry: r,
		title:    r.MustDeclare("title", rdf.DC11Title, lens.First(), lens.LiteralToString()),
		subjects: r.MustDeclare("subjects", rdf.DCSubject, lens.LiteralsToStrings()),
		titleEn: r.MustDeclare("title_en",
			lens.GetPredicate(rdf.DCTitle, lens.SelectLanguage("en")), lens.First(), lens.LiteralToString()),
	}
	require.NoError(t, r.Require("title"))
	return m
}

func TestRecordCreateAndFind(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/")
	ctx := context.Background()
	docs := newDocumentModel(t)

	rec := docs.New()
	assert.False(t, rec.Persisted())
	assert.Equal(t, "document", rec.ModelName())
	assert.Equal(t, []string{"title", "subjects", "title_en"}, rec.AttributeNames())

	require.NoError(t, rec.Set(docs.title, "A title"))
	require.NoError(t, rec.Set(docs.subjects, []any{"maps", "charts"}))
	assert.Equal(t, []string{"title", "subjects"}, rec.Changed())
	require.NoError(t, rec.Save(ctx, repo))

	assert.True(t, rec.Persisted())
	assert.Equal(t, "/r1", rec.ID())
	assert.Empty(t, rec.Changed())

	stored := srv.Graph("/r1")
	require.NotNil(t, stored)
	assert.Equal(t, []rdf.Term{rdf.NewLiteral("A title")}, stored.Objects(srv.Subject("/r1"), rdf.DC11Title))

	found, err := docs.Find(ctx, repo, "/r1")
	require.NoError(t, err)
	title, ok := model.Value[string](found, docs.title)
	require.True(t, ok)
	assert.Equal(t, "A title", title)
	assert.Equal(t, lens.Attributes{
		"title":    "A title",
		"subjects": []any{"maps", "charts"},
		"title_en": nil,
	}, found.Attributes())

	_, ok = model.Value[int](found, docs.title)
	assert.False(t, ok)
}

func TestRecordValidate(t *testing.T) {
	srv := ldptest.NewServer(t)
	docs := newDocumentModel(t)

	rec := docs.New()
	require.NoError(t, rec.Set(docs.subjects, []any{"maps"}))
	err := rec.Save(context.Background(), srv.Repository("/"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Contains(t, err.Error(), "title")
	assert.Empty(t, srv.Requests(), "an invalid record is never sent")

	require.NoError(t, rec.Set(docs.title, ""))
	assert.Error(t, rec.Validate(), "an empty string is no value")
	require.NoError(t, rec.Set(docs.title, "ok"))
	assert.NoError(t, rec.Validate())
}

func TestRecordUnknownAttributes(t *testing.T) {
	docs := newDocumentModel(t)
	other := model.NewRegistry("image")
	width := other.MustDeclare("width", rdf.IRI("http://example.org/width"))

	rec := docs.New()
	assert.True(t, errors.Is(rec.Set(width, 10), errors.ErrUnexpectedAttribute))
	assert.True(t, errors.Is(rec.Set(model.Attr{}, 10), errors.ErrUnexpectedAttribute))
	assert.True(t, errors.Is(rec.SetByName("nope", 1), errors.ErrUnexpectedAttribute))

	_, err := rec.GetByName("nope")
	assert.True(t, errors.Is(err, errors.ErrUnexpectedAttribute))

	sibling := model.NewRegistry("map")
	siblingTitle := sibling.MustDeclare("title", rdf.DC11Title, lens.First(), lens.LiteralToString())
	require.NoError(t, rec.Set(docs.title, "mine"))
	assert.Nil(t, rec.Get(siblingTitle), "an attribute of another model reads as nil")
	assert.Nil(t, rec.Get(model.Attr{}))
	assert.Equal(t, "mine", rec.Get(docs.title))

	err = rec.Assign(lens.Attributes{"title": "x", "nope": 1})
	assert.True(t, errors.Is(err, errors.ErrUnexpectedAttribute))
	assert.Equal(t, "mine", rec.Get(docs.title), "a rejected assign changes nothing")

	require.NoError(t, rec.Assign(lens.Attributes{"title": "x"}))
	got, err := rec.GetByName("title")
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestRecordUpdateKeepsUndeclaredTriples(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/")
	ctx := context.Background()
	docs := newDocumentModel(t)

	subject := srv.Subject("/a")
	srv.Put("/a", rdf.NewGraph(
		rdf.Triple{Subject: subject, Predicate: rdf.DC11Title, Object: rdf.NewLiteral("Old")},
		rdf.Triple{Subject: subject, Predicate: rdf.DCTitle, Object: rdf.NewLangLiteral("English", "en")},
		rdf.Triple{Subject: subject, Predicate: rdf.DCTitle, Object: rdf.NewLangLiteral("Deutsch", "de")},
		rdf.Triple{Subject: subject, Predicate: rdf.DCRights, Object: rdf.NewLiteral("CC0")},
	))

	rec, err := docs.Find(ctx, repo, "/a")
	require.NoError(t, err)
	assert.Equal(t, "English", rec.Get(docs.titleEn))

	require.NoError(t, rec.Set(docs.title, "New"))
	require.NoError(t, rec.Set(docs.titleEn, "Anglais"))
	require.NoError(t, rec.Save(ctx, repo))

	reqs := srv.Requests()
	put := reqs[len(reqs)-1]
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, `W/"1"`, put.Header.Get("If-Match"))

	stored := srv.Graph("/a")
	assert.Equal(t, []rdf.Term{rdf.NewLiteral("New")}, stored.Objects(subject, rdf.DC11Title))
	assert.ElementsMatch(t, []rdf.Term{
		rdf.NewLangLiteral("Anglais", "en"),
		rdf.NewLangLiteral("Deutsch", "de"),
	}, stored.Objects(subject, rdf.DCTitle), "the untagged language is left alone")
	assert.Equal(t, []rdf.Term{rdf.NewLiteral("CC0")}, stored.Objects(subject, rdf.DCRights))
}

func TestRecordConflict(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/")
	ctx := context.Background()
	docs := newDocumentModel(t)

	srv.Put("/a", rdf.NewGraph(rdf.Triple{Subject: srv.Subject("/a"), Predicate: rdf.DC11Title, Object: rdf.NewLiteral("Old")}))
	rec, err := docs.Find(ctx, repo, "/a")
	require.NoError(t, err)

	srv.Touch("/a")
	require.NoError(t, rec.Set(docs.title, "Mine"))
	err = rec.Save(ctx, repo)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))

	assert.Equal(t, []rdf.Term{rdf.NewLiteral("Old")}, rec.Resource().Query(rdf.DC11Title), "a failed save leaves the resource alone")
	assert.Equal(t, []string{"title"}, rec.Changed())
	assert.Equal(t, "Mine", rec.Get(docs.title))

	require.NoError(t, rec.Reload(ctx, repo))
	assert.Equal(t, "Old", rec.Get(docs.title), "reload discards the unsaved change")
	assert.Empty(t, rec.Changed())

	require.NoError(t, rec.Set(docs.title, "Mine"))
	require.NoError(t, rec.Save(ctx, repo))
}

func TestRecordDestroy(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/")
	ctx := context.Background()
	docs := newDocumentModel(t)

	rec := docs.New()
	assert.Error(t, rec.Destroy(ctx, repo), "unsaved records cannot be deleted")
	assert.Error(t, rec.Reload(ctx, repo))

	require.NoError(t, rec.Set(docs.title, "Doomed"))
	require.NoError(t, rec.Save(ctx, repo))
	require.NoError(t, rec.Destroy(ctx, repo))
	assert.Nil(t, srv.Graph(rec.ID()))

	_, err := docs.Find(ctx, repo, rec.ID())
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRecordOnSQLite(t *testing.T) {
	repo := ldp.NewSQLiteRepository(testdb.CreateTestDB(t), "http://localhost:8080/rest", "/objects", zaptest.NewLogger(t).Sugar())
	ctx := context.Background()
	docs := newDocumentModel(t)

	rec := docs.New()
	require.NoError(t, rec.Assign(lens.Attributes{"title": "Local", "subjects": []any{"a", "b"}}))
	require.NoError(t, rec.Save(ctx, repo))
	assert.Regexp(t, `^/objects/[0-9a-f-]{36}$`, rec.ID())

	found, err := docs.Find(ctx, repo, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, rec.Attributes(), found.Attributes())

	require.NoError(t, found.Set(docs.subjects, nil))
	require.NoError(t, found.Save(ctx, repo))
	assert.Equal(t, []any{}, found.Get(docs.subjects))
}
