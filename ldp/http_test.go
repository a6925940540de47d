package ldp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/internal/httpclient"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/ldp/ldptest"
	"github.com/teranos/fedlens/rdf"
)

func TestHTTPRepositoryFind(t *testing.T) {
	srv := ldptest.NewServer(t)
	subject := srv.Subject("/a")
	srv.Put("/a", rdf.NewGraph(
		rdf.Triple{Subject: subject, Predicate: rdf.DCTitle, Object: rdf.NewLiteral("old")},
	))
	repo := srv.Repository("/")

	r, err := repo.Find(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "/a", r.ID())
	assert.Equal(t, rdf.Term(subject), r.Subject())
	assert.Equal(t, `W/"1"`, r.ETag())
	assert.Equal(t, []rdf.Term{rdf.NewLiteral("old")}, r.Query(rdf.DCTitle))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, rdf.MediaTypeNTriples, reqs[0].Header.Get("Accept"))

	_, err = repo.Find(context.Background(), "/missing")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = repo.Find(context.Background(), "")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestHTTPRepositoryCreateRebasesSubject(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/objects")

	r := ldp.NewResource()
	r.Insert(rdf.DCTitle, rdf.NewLiteral("new"))
	require.NoError(t, repo.Create(context.Background(), r))

	assert.False(t, r.IsNew())
	assert.Equal(t, "/objects/r1", r.ID())
	assert.Equal(t, rdf.Term(srv.Subject("/objects/r1")), r.Subject())
	assert.Equal(t, []rdf.Term{rdf.NewLiteral("new")}, r.Query(rdf.DCTitle))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, ldptest.BasePath+"/objects", reqs[0].Path)
	assert.Contains(t, reqs[0].Body, `<> <http://purl.org/dc/terms/title> "new"`)

	stored := srv.Graph("/objects/r1")
	require.NotNil(t, stored)
	assert.Equal(t, []rdf.Term{rdf.NewLiteral("new")}, stored.Objects(r.Subject(), rdf.DCTitle))

	err := repo.Create(context.Background(), r)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "already created")
}

func TestHTTPRepositoryCreateRejectsInvalidIRI(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/objects")

	r := ldp.NewResource()
	r.Insert(rdf.RDFSSeeAlso, rdf.IRI("http://x/a b>c"))
	err := repo.Create(context.Background(), r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rdf.ErrInvalidIRI))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.True(t, r.IsNew())
	assert.Empty(t, srv.Requests(), "nothing is sent")
}

func TestHTTPRepositorySave(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/")
	ctx := context.Background()

	r := ldp.NewResource()
	r.Insert(rdf.DCTitle, rdf.NewLiteral("first"))
	require.NoError(t, repo.Create(ctx, r))

	r.Delete(rdf.DCTitle, nil)
	r.Insert(rdf.DCTitle, rdf.NewLiteral("second"))
	require.NoError(t, repo.Save(ctx, r))
	assert.Equal(t, `W/"2"`, r.ETag())

	put := srv.Requests()[1]
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, `W/"1"`, put.Header.Get("If-Match"))
	assert.Contains(t, put.Header.Get("Prefer"), "handling=lenient")

	reloaded, err := repo.Find(ctx, r.ID())
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{rdf.NewLiteral("second")}, reloaded.Query(rdf.DCTitle))

	t.Run("conflict when changed underneath", func(t *testing.T) {
		srv.Touch(r.ID())
		err := repo.Save(ctx, r)
		require.Error(t, err)
		assert.True(t, errors.IsConflictError(err))
	})

	t.Run("new resources cannot be saved", func(t *testing.T) {
		err := repo.Save(ctx, ldp.NewResource())
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})
}

func TestHTTPRepositoryDelete(t *testing.T) {
	srv := ldptest.NewServer(t)
	repo := srv.Repository("/")
	ctx := context.Background()

	r := ldp.NewResource()
	require.NoError(t, repo.Create(ctx, r))
	require.NoError(t, repo.Delete(ctx, r))
	assert.Nil(t, srv.Graph(r.ID()))

	err := repo.Delete(ctx, r)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestHTTPRepositoryStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"server error", http.StatusInternalServerError, errors.ErrServiceUnavailable},
		{"bad request", http.StatusBadRequest, errors.ErrInvalidRequest},
		{"conflict", http.StatusConflict, errors.ErrConflict},
		{"gone resource", http.StatusNotFound, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			repo := ldp.NewHTTPRepository(srv.URL+"/rest", "/", httpclient.Wrap(srv.Client()), zaptest.NewLogger(t).Sugar())
			_, err := repo.Find(context.Background(), "/a")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, errors.GetAllDetails(err), "nope")
		})
	}
}

func TestHTTPRepositoryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/rest"
	srv.Close()

	repo := ldp.NewHTTPRepository(base, "/", httpclient.New(httpclient.Options{AllowPrivate: true}), nil)
	_, err := repo.Find(context.Background(), "/a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestHTTPRepositoryBlockedTarget(t *testing.T) {
	repo := ldp.NewHTTPRepository("http://127.0.0.1:1/rest", "/", httpclient.New(httpclient.Options{}), nil)
	_, err := repo.Find(context.Background(), "/a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpclient.ErrBlocked))
	assert.Contains(t, errors.FlattenHints(err), "allow_private")
}

func TestHTTPRepositoryCreateRejectsForeignLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://elsewhere.example/rest/x")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	repo := ldp.NewHTTPRepository(srv.URL+"/rest", "/", httpclient.Wrap(srv.Client()), nil)
	r := ldp.NewResource()
	err := repo.Create(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
	assert.True(t, r.IsNew())
}
