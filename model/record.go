package model

import (
	"context"
	"reflect"
	"slices"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/lens"
	"github.com/teranos/fedlens/logger"
)

// Model is what the rest of the program needs from a model instance.
type Model interface {
	ModelName() string
	ID() string
	Persisted() bool
	Attributes() lens.Attributes
	Validate() error
}

// Record is one model instance: a resource and the attribute values read
// from it through the registry's aggregate lens.
//
// A Record is owned by one operation at a time.
type Record struct {
	registry *Registry
	resource *ldp.Resource
	values   lens.Attributes
	dirty    map[string]bool
}

var _ Model = (*Record)(nil)

// New returns an unsaved record with no attribute values.
func (r *Registry) New() *Record {
	return &Record{
		registry: r,
		resource: ldp.NewResource(),
		values:   lens.Attributes{},
		dirty:    map[string]bool{},
	}
}

// Load reads every attribute of res.
func (r *Registry) Load(res *ldp.Resource) (*Record, error) {
	if res == nil {
		return nil, errors.NewInvalidRequestError("%s: nil resource", r.name)
	}
	values, err := r.Aggregate().GetAttributes(res)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s %s", r.name, res)
	}
	return &Record{registry: r, resource: res, values: values, dirty: map[string]bool{}}, nil
}

// Find loads the record stored under id.
func (r *Registry) Find(ctx context.Context, repo ldp.Repository, id string) (*Record, error) {
	res, err := repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Load(res)
}

// Registry returns the attribute table of the record's model type.
func (rec *Record) Registry() *Registry { return rec.registry }

// Resource returns the backing resource. Attribute changes reach it on
// Save.
func (rec *Record) Resource() *ldp.Resource { return rec.resource }

// ModelName returns the model type name.
func (rec *Record) ModelName() string { return rec.registry.name }

// ID returns the repository identifier, or "" before the first save.
func (rec *Record) ID() string { return rec.resource.ID() }

// Persisted reports whether the record has been saved.
func (rec *Record) Persisted() bool { return !rec.resource.IsNew() }

// Get returns the value of a, or nil when it has none. An attribute of
// an unrelated model reads as nil; use GetByName to get an error instead.
func (rec *Record) Get(a Attr) any {
	if !rec.owns(a) {
		return nil
	}
	return rec.values[a.name]
}

// Set changes the value of a. The change is written on Save.
func (rec *Record) Set(a Attr, value any) error {
	if !rec.owns(a) {
		return errors.Wrapf(errors.ErrUnexpectedAttribute, "%s is not an attribute of %s", a, rec.registry.name)
	}
	return rec.SetByName(a.name, value)
}

func (rec *Record) owns(a Attr) bool {
	return a.Valid() && rec.registry.Descends(a.owner)
}

// GetByName returns the value of the attribute name.
func (rec *Record) GetByName(name string) (any, error) {
	if _, ok := rec.registry.Lookup(name); !ok {
		return nil, errors.Wrapf(errors.ErrUnexpectedAttribute, "%s has no attribute %q", rec.registry.name, name)
	}
	return rec.values[name], nil
}

// SetByName changes the value of the attribute name.
func (rec *Record) SetByName(name string, value any) error {
	if _, ok := rec.registry.Lookup(name); !ok {
		return errors.Wrapf(errors.ErrUnexpectedAttribute, "%s has no attribute %q", rec.registry.name, name)
	}
	rec.values[name] = value
	rec.dirty[name] = true
	return nil
}

// Changed returns the names of attributes set since the last load or save,
// in declaration order.
func (rec *Record) Changed() []string {
	var names []string
	for _, name := range rec.registry.Names() {
		if rec.dirty[name] {
			names = append(names, name)
		}
	}
	return names
}

// AttributeNames returns the declared attribute names in order.
func (rec *Record) AttributeNames() []string {
	return rec.registry.Names()
}

// Attributes returns a copy of every attribute value, with nil for
// attributes that have none.
func (rec *Record) Attributes() lens.Attributes {
	out := make(lens.Attributes)
	for _, name := range rec.registry.Names() {
		out[name] = rec.values[name]
	}
	return out
}

// Assign sets several attributes at once. Nothing is changed when attrs
// names an undeclared attribute.
func (rec *Record) Assign(attrs lens.Attributes) error {
	var unknown []string
	for name := range attrs {
		if _, ok := rec.registry.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return errors.Wrapf(errors.ErrUnexpectedAttribute, "%s has no attributes %v", rec.registry.name, unknown)
	}
	for name, v := range attrs {
		rec.values[name] = v
		rec.dirty[name] = true
	}
	return nil
}

// Validate checks that every required attribute has a value.
func (rec *Record) Validate() error {
	var missing []string
	for _, name := range rec.registry.Required() {
		if isBlank(rec.values[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.NewInvalidRequestError("%s: missing required attributes %v", rec.registry.name, missing)
	}
	return nil
}

// Save validates the record, writes the changed attributes into a copy
// of the resource and persists the copy. The record adopts the copy only
// once the repository accepts it, so a failed save leaves the resource and
// the pending changes as they were. Values are reread afterwards so they
// reflect what the resource now holds.
func (rec *Record) Save(ctx context.Context, repo ldp.Repository) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	log := logger.LoggerFromContext(ctx)

	next := rec.resource.Clone()
	changed := rec.Changed()
	if len(changed) > 0 {
		attrs := make(lens.Attributes, len(changed))
		for _, name := range changed {
			attrs[name] = rec.values[name]
		}
		out, err := rec.registry.Aggregate().Put(next, attrs)
		if err != nil {
			return errors.Wrapf(err, "failed to write %s attributes", rec.registry.name)
		}
		res, ok := out.(*ldp.Resource)
		if !ok {
			return errors.AssertionFailedf("aggregate put returned %T", out)
		}
		next = res
	}

	id, err := ldp.Persist(ctx, repo, next)
	if err != nil {
		return errors.Wrapf(err, "failed to save %s", rec.registry.name)
	}
	rec.resource = next

	values, err := rec.registry.Aggregate().GetAttributes(rec.resource)
	if err != nil {
		return errors.Wrapf(err, "failed to reload %s %s", rec.registry.name, id)
	}
	rec.values = values
	clear(rec.dirty)

	log.Infow("saved model", logger.FieldModel, rec.registry.name, logger.FieldResource, id, logger.FieldCount, len(changed))
	return nil
}

// Reload discards unsaved changes and rereads the record from repo.
func (rec *Record) Reload(ctx context.Context, repo ldp.Repository) error {
	if !rec.Persisted() {
		return errors.NewInvalidRequestError("cannot reload an unsaved %s", rec.registry.name)
	}
	fresh, err := rec.registry.Find(ctx, repo, rec.ID())
	if err != nil {
		return err
	}
	*rec = *fresh
	return nil
}

// Destroy deletes the record's resource from repo.
func (rec *Record) Destroy(ctx context.Context, repo ldp.Repository) error {
	if !rec.Persisted() {
		return errors.NewInvalidRequestError("cannot delete an unsaved %s", rec.registry.name)
	}
	if err := repo.Delete(ctx, rec.resource); err != nil {
		return err
	}
	logger.LoggerFromContext(ctx).Infow("deleted model", logger.FieldModel, rec.registry.name, logger.FieldResource, rec.ID())
	return nil
}

// Value returns the value of a as a T. ok is false when the attribute has
// no value or holds another type.
func Value[T any](rec *Record, a Attr) (v T, ok bool) {
	v, ok = rec.Get(a).(T)
	return v, ok
}

// isBlank reports whether v counts as no value: nil, an empty string or
// an empty collection.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
