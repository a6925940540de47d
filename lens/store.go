package lens

import (
	"fmt"

	"github.com/teranos/fedlens/ldp"
)

// ResourceStore loads and persists repository resources. *ldp.Session
// implements it.
type ResourceStore interface {
	FindResource(id string) (*ldp.Resource, error)
	PersistResource(r *ldp.Resource) (string, error)
}

// ModelStore loads and saves model instances by type name.
type ModelStore interface {
	FindModel(modelType, id string) (any, error)
	SaveModel(modelType string, model any) (string, error)
}

type loadModel struct {
	modelType string
	store     ModelStore
}

// LoadModel maps an identifier to the model instance it names. Put and
// Create save the model through the store and return its identifier. An
// empty identifier reads as nil.
func LoadModel(modelType string, store ModelStore) Lens {
	return loadModel{modelType: modelType, store: store}
}

func (l loadModel) Get(source any) (any, error) {
	id, ok := source.(string)
	if source != nil && !ok {
		return nil, mismatch(l, "source", "an identifier", source)
	}
	if id == "" {
		return nil, nil
	}
	return l.store.FindModel(l.modelType, id)
}

func (l loadModel) Put(source, value any) (any, error) {
	if value == nil {
		return source, nil
	}
	return l.store.SaveModel(l.modelType, value)
}

func (l loadModel) Create(value any) (any, error) {
	return l.Put(nil, value)
}

func (loadModel) Kind() Kind       { return KindLoadModel }
func (l loadModel) String() string { return fmt.Sprintf("load_model(%s)", l.modelType) }

func (l loadModel) Equal(other Lens) bool {
	o, ok := other.(loadModel)
	return ok && o.modelType == l.modelType && sameParam(o.store, l.store)
}

type loadOrBuildResource struct {
	store ResourceStore
}

// LoadOrBuildResource maps an identifier to a repository resource. Get
// builds an empty, unsaved resource for an empty identifier. Put persists
// the resource, creating it when new, and returns its canonical
// identifier.
func LoadOrBuildResource(store ResourceStore) Lens {
	return loadOrBuildResource{store: store}
}

func (l loadOrBuildResource) Get(source any) (any, error) {
	id, ok := source.(string)
	if source != nil && !ok {
		return nil, mismatch(l, "source", "an identifier", source)
	}
	if id == "" {
		return ldp.NewResource(), nil
	}
	return l.store.FindResource(id)
}

func (l loadOrBuildResource) Put(source, value any) (any, error) {
	if value == nil {
		return source, nil
	}
	r, ok := value.(*ldp.Resource)
	if !ok || r == nil {
		return nil, mismatch(l, "value", "an *ldp.Resource", value)
	}
	return l.store.PersistResource(r)
}

func (l loadOrBuildResource) Create(value any) (any, error) {
	return l.Put(nil, value)
}

func (loadOrBuildResource) Kind() Kind     { return KindLoadOrBuildResource }
func (loadOrBuildResource) String() string { return "load_or_build_resource" }

func (l loadOrBuildResource) Equal(other Lens) bool {
	o, ok := other.(loadOrBuildResource)
	return ok && sameParam(o.store, l.store)
}
