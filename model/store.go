package model

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/logger"
)

// Store resolves model instances by type name for the LoadModel lens. It
// also hands the session to LoadOrBuildResource lenses, so registries
// built against one Store read and write through one repository session.
type Store struct {
	session *ldp.Session
	baseURL string
	logger  *zap.SugaredLogger

	mu         sync.RWMutex
	registries map[string]*Registry
}

// NewStore returns a store over session. baseURL is the repository root
// used to turn subject IRIs into identifiers.
func NewStore(session *ldp.Session, baseURL string, log *zap.SugaredLogger) *Store {
	return &Store{
		session:    session,
		baseURL:    baseURL,
		logger:     logger.OrNop(log),
		registries: map[string]*Registry{},
	}
}

// Session returns the repository session.
func (s *Store) Session() *ldp.Session { return s.session }

// BaseURL returns the repository root.
func (s *Store) BaseURL() string { return s.baseURL }

// Register makes r resolvable by its name. Registering a second registry
// under the same name fails.
func (s *Store) Register(r *Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registries[r.Name()]; exists {
		return errors.NewInvalidRequestError("model %q already registered", r.Name())
	}
	s.registries[r.Name()] = r
	s.logger.Debugw("registered model", logger.FieldModel, r.Name(), logger.FieldCount, len(r.Names()))
	return nil
}

// Registry returns the registry registered under name.
func (s *Store) Registry(name string) (*Registry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registries[name]
	return r, ok
}

// Models returns the registered model names in sorted order.
func (s *Store) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.registries))
	for name := range s.registries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindModel loads the record of type modelType stored under id.
func (s *Store) FindModel(modelType, id string) (any, error) {
	r, err := s.lookup(modelType)
	if err != nil {
		return nil, err
	}
	return r.Find(s.session.Context(), s.session.Repository(), id)
}

// SaveModel saves a *Record of type modelType, or of a type extending it,
// and returns its identifier.
func (s *Store) SaveModel(modelType string, m any) (string, error) {
	r, err := s.lookup(modelType)
	if err != nil {
		return "", err
	}
	rec, ok := m.(*Record)
	if !ok || rec == nil {
		return "", errors.TypeMismatchf("load_model(%s): value must be a *model.Record, got %T", modelType, m)
	}
	if !rec.Registry().Descends(r) {
		return "", errors.TypeMismatchf("load_model(%s): got a %s", modelType, rec.ModelName())
	}
	if err := rec.Save(s.session.Context(), s.session.Repository()); err != nil {
		return "", err
	}
	return rec.ID(), nil
}

func (s *Store) lookup(modelType string) (*Registry, error) {
	r, ok := s.Registry(modelType)
	if !ok {
		return nil, errors.NewNotFoundError("model %q", modelType)
	}
	return r, nil
}
