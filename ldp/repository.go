package ldp

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/fedlens/am"
	"github.com/teranos/fedlens/db"
	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/internal/httpclient"
)

// Repository loads and persists resources.
//
// Find returns an error wrapping errors.ErrNotFound for unknown ids. Create
// assigns the resource its id, subject and ETag in place. Save fails with
// errors.ErrConflict when the stored resource changed since it was read.
type Repository interface {
	Find(ctx context.Context, id string) (*Resource, error)
	Create(ctx context.Context, r *Resource) error
	Save(ctx context.Context, r *Resource) error
	Delete(ctx context.Context, r *Resource) error
}

// Persist creates r when it is new and saves it otherwise, returning its id.
func Persist(ctx context.Context, repo Repository, r *Resource) (string, error) {
	if r == nil {
		return "", errors.NewInvalidRequestError("nil resource")
	}
	if r.IsNew() {
		if err := repo.Create(ctx, r); err != nil {
			return "", err
		}
		return r.ID(), nil
	}
	if err := repo.Save(ctx, r); err != nil {
		return "", err
	}
	return r.ID(), nil
}

// NormalizeID turns "abc", "/abc" and "abc/" into "/abc".
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.Trim(id, "/")
	return "/" + id
}

// IDFromSubject strips base from subject. ok is false when subject is not
// under base.
func IDFromSubject(base string, subject string) (id string, ok bool) {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(subject, base+"/") {
		return "", false
	}
	return NormalizeID(strings.TrimPrefix(subject, base)), true
}

// Open builds the repository selected by cfg. The returned closer releases
// the backend's resources and is never nil.
func Open(cfg *am.Config, log *zap.SugaredLogger) (Repository, io.Closer, error) {
	switch cfg.Repository.Backend {
	case am.BackendHTTP:
		client := httpclient.New(httpclient.Options{
			Timeout:           cfg.Repository.Timeout(),
			AllowPrivate:      cfg.Repository.AllowPrivate,
			RequestsPerSecond: cfg.Repository.RequestsPerSecond,
			Logger:            named(log, "http"),
		})
		repo := NewHTTPRepository(cfg.Repository.BaseURL, cfg.Repository.Container, client, named(log, "ldp.http"))
		return repo, nopCloser{}, nil

	case am.BackendSQLite:
		conn, err := db.OpenWithMigrations(cfg.Database.Path, named(log, "db"))
		if err != nil {
			return nil, nil, err
		}
		repo := NewSQLiteRepository(conn, cfg.Repository.BaseURL, cfg.Repository.Container, named(log, "ldp.sqlite"))
		return repo, conn, nil

	default:
		return nil, nil, errors.NewInvalidRequestError("unknown repository backend %q", cfg.Repository.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func named(log *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log.Named(name)
}

// newETag returns a fresh weak entity tag.
func newETag() string {
	return `W/"` + uuid.NewString() + `"`
}
