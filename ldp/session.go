package ldp

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/fedlens/logger"
)

// Session binds one repository to the context of one model operation, so
// lenses that cross into the repository need no global connection.
type Session struct {
	ctx    context.Context
	repo   Repository
	logger *zap.SugaredLogger
}

// NewSession returns a session over repo scoped to ctx.
func NewSession(ctx context.Context, repo Repository) *Session {
	return &Session{ctx: ctx, repo: repo, logger: logger.LoggerFromContext(ctx)}
}

// Context returns the session context.
func (s *Session) Context() context.Context { return s.ctx }

// Repository returns the underlying repository.
func (s *Session) Repository() Repository { return s.repo }

// FindResource loads the resource stored under id.
func (s *Session) FindResource(id string) (*Resource, error) {
	s.logger.Debugw("find resource", logger.FieldResource, id)
	return s.repo.Find(s.ctx, id)
}

// PersistResource creates or saves r and returns its canonical id.
func (s *Session) PersistResource(r *Resource) (string, error) {
	id, err := Persist(s.ctx, s.repo, r)
	if err != nil {
		return "", err
	}
	s.logger.Debugw("persisted resource", logger.FieldResource, id)
	return id, nil
}
