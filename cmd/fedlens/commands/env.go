package commands

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/fedlens/am"
	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/logger"
	"github.com/teranos/fedlens/model"
)

// env is everything a resource command needs: the repository named by the
// configuration and the models of its schema, bound to one session.
type env struct {
	cfg     *am.Config
	log     *zap.SugaredLogger
	repo    ldp.Repository
	closer  io.Closer
	session *ldp.Session
	store   *model.Store
}

func openEnv(ctx context.Context, cfg *am.Config) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	log := logger.ComponentLogger("fedlens")

	schema, err := model.LoadSchema(cfg.Schema.Path)
	if err != nil {
		return nil, errors.WithHint(err, "set schema.path in fedlens.toml or FEDLENS_SCHEMA_PATH")
	}

	repo, closer, err := ldp.Open(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open repository")
	}

	session := ldp.NewSession(ctx, repo)
	store := model.NewStore(session, cfg.Repository.BaseURL, log.Named("model"))
	if _, err := schema.Build(store); err != nil {
		closer.Close()
		return nil, errors.Wrapf(err, "failed to build schema %s", cfg.Schema.Path)
	}

	log.Debugw("Opened environment",
		"backend", cfg.Repository.Backend,
		logger.FieldURL, cfg.Repository.BaseURL,
		logger.FieldCount, len(store.Models()))

	return &env{
		cfg:     cfg,
		log:     log,
		repo:    repo,
		closer:  closer,
		session: session,
		store:   store,
	}, nil
}

func (e *env) registry(name string) (*model.Registry, error) {
	r, ok := e.store.Registry(name)
	if !ok {
		return nil, errors.WithHintf(errors.NewNotFoundError("unknown model %q", name),
			"models in %s: %s", e.cfg.Schema.Path, strings.Join(e.store.Models(), ", "))
	}
	return r, nil
}

func (e *env) find(ctx context.Context, modelName, id string) (*model.Record, error) {
	r, err := e.registry(modelName)
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, e.repo, ldp.NormalizeID(id))
}

func (e *env) Close() error {
	return e.closer.Close()
}

// withEnv loads the configuration, opens an env for the duration of fn and
// closes it afterwards.
func withEnv(ctx context.Context, opts *rootOptions, fn func(*env) error) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	e, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}
