package ldp

import (
	"context"
	"database/sql"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/fedlens/db"
	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/logger"
	"github.com/teranos/fedlens/rdf"
)

// SQLiteRepository is a Repository stored in a local SQLite database. It
// mints subjects under baseURL the way an LDP server would, so resources
// move between backends unchanged.
type SQLiteRepository struct {
	db        *sql.DB
	baseURL   string
	container string
	logger    *zap.SugaredLogger
}

// NewSQLiteRepository returns a repository over a migrated database.
func NewSQLiteRepository(conn *sql.DB, baseURL, container string, log *zap.SugaredLogger) *SQLiteRepository {
	return &SQLiteRepository{
		db:        conn,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		container: NormalizeID(container),
		logger:    logger.OrNop(log),
	}
}

// Find loads the resource stored under id.
func (s *SQLiteRepository) Find(ctx context.Context, id string) (*Resource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewInvalidRequestError("empty resource id")
	}
	id = NormalizeID(id)

	var subject, etag string
	err := s.db.QueryRowContext(ctx, "SELECT subject, etag FROM resources WHERE id = ?", id).Scan(&subject, &etag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("resource %s", id)
	}
	if err != nil {
		return nil, s.wrap(err, "failed to query resource %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT subject, predicate, object FROM triples WHERE resource_id = ? ORDER BY position", id)
	if err != nil {
		return nil, s.wrap(err, "failed to query triples of %s", id)
	}
	defer rows.Close()

	g := rdf.NewGraph()
	for rows.Next() {
		var subj, pred, obj string
		if err := rows.Scan(&subj, &pred, &obj); err != nil {
			return nil, s.wrap(err, "failed to scan triple of %s", id)
		}
		t, err := decodeTriple(subj, pred, obj)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt triple in %s", id)
		}
		g.Insert(t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err, "failed to read triples of %s", id)
	}

	s.logger.Debugw("loaded resource", logger.FieldResource, id, logger.FieldCount, g.Len())
	return LoadedResource(id, rdf.IRI(subject), g, etag), nil
}

// Create stores r under a fresh id in the configured container.
func (s *SQLiteRepository) Create(ctx context.Context, r *Resource) error {
	if !r.IsNew() {
		return errors.NewInvalidRequestError("resource %s already exists", r.ID())
	}
	id := path.Join(s.container, uuid.NewString())
	subject := rdf.IRI(s.baseURL + id)
	etag := newETag()

	// rebase a copy first so a failed insert leaves r untouched
	g := r.Graph().Clone()
	g.Rebase(r.SubjectIRI(), subject)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO resources (id, subject, container, etag) VALUES (?, ?, ?, ?)",
			id, string(subject), s.container, etag); err != nil {
			return s.wrap(err, "failed to insert resource %s", id)
		}
		return insertTriples(ctx, tx, id, g)
	})
	if err != nil {
		return err
	}

	r.assign(id, subject, etag)
	s.logger.Infow("created resource", logger.FieldResource, id, logger.FieldCount, g.Len())
	return nil
}

// Save replaces the stored triples of r. When r carries an ETag it must
// match the stored one.
func (s *SQLiteRepository) Save(ctx context.Context, r *Resource) error {
	if r.IsNew() {
		return errors.NewInvalidRequestError("cannot save a resource that was never created")
	}
	etag := newETag()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var stored string
		err := tx.QueryRowContext(ctx, "SELECT etag FROM resources WHERE id = ?", r.ID()).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("resource %s", r.ID())
		}
		if err != nil {
			return s.wrap(err, "failed to lock resource %s", r.ID())
		}
		if r.ETag() != "" && r.ETag() != stored {
			return errors.Wrapf(errors.ErrConflict, "resource %s changed since it was read", r.ID())
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM triples WHERE resource_id = ?", r.ID()); err != nil {
			return s.wrap(err, "failed to clear triples of %s", r.ID())
		}
		if err := insertTriples(ctx, tx, r.ID(), r.Graph()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE resources SET etag = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", etag, r.ID()); err != nil {
			return s.wrap(err, "failed to update resource %s", r.ID())
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.etag = etag
	s.logger.Infow("saved resource", logger.FieldResource, r.ID(), logger.FieldCount, r.Graph().Len())
	return nil
}

// Delete removes r and its triples.
func (s *SQLiteRepository) Delete(ctx context.Context, r *Resource) error {
	if r.IsNew() {
		return errors.NewInvalidRequestError("cannot delete a resource that was never created")
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", r.ID())
	if err != nil {
		return s.wrap(err, "failed to delete resource %s", r.ID())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap(err, "failed to delete resource %s", r.ID())
	}
	if n == 0 {
		return errors.NewNotFoundError("resource %s", r.ID())
	}
	r.etag = ""
	s.logger.Infow("deleted resource", logger.FieldResource, r.ID())
	return nil
}

// List returns the ids stored in container, oldest first.
func (s *SQLiteRepository) List(ctx context.Context, container string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM resources WHERE container = ? ORDER BY created_at, id", NormalizeID(container))
	if err != nil {
		return nil, s.wrap(err, "failed to list %s", container)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, s.wrap(err, "failed to scan id")
		}
		ids = append(ids, id)
	}
	return ids, s.wrap(rows.Err(), "failed to list %s", container)
}

func (s *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.wrap(err, "failed to commit transaction")
	}
	return nil
}

// wrap adds context to a database error and marks a closed connection as
// the repository being unavailable.
func (s *SQLiteRepository) wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	wrapped := errors.Wrapf(err, format, args...)
	if db.IsDatabaseClosed(err) {
		return errors.Mark(wrapped, errors.ErrServiceUnavailable)
	}
	return wrapped
}

func insertTriples(ctx context.Context, tx *sql.Tx, id string, g *rdf.Graph) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO triples (resource_id, position, subject, predicate, object) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "failed to prepare triple insert")
	}
	defer stmt.Close()

	for i, t := range g.Triples() {
		subject, object, err := encodeTriple(t)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "triple %d of %s", i, id), errors.ErrInvalidRequest)
		}
		if _, err := stmt.ExecContext(ctx, id, i, subject, string(t.Predicate), object); err != nil {
			return errors.Wrapf(err, "failed to insert triple %d of %s", i, id)
		}
	}
	return nil
}

func encodeTriple(t rdf.Triple) (subject, object string, err error) {
	if subject, err = rdf.MarshalTerm(t.Subject); err != nil {
		return "", "", err
	}
	if err = rdf.ValidateIRI(string(t.Predicate)); err != nil {
		return "", "", err
	}
	if object, err = rdf.MarshalTerm(t.Object); err != nil {
		return "", "", err
	}
	return subject, object, nil
}

func decodeTriple(subject, predicate, object string) (rdf.Triple, error) {
	s, err := rdf.ParseTerm(subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	o, err := rdf.ParseTerm(object)
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.NewTriple(s, rdf.IRI(predicate), o)
}
