// Package model maps named attributes of a model type onto repository
// resources.
//
// A Registry is the attribute table of one model type. Attributes are
// declared once at startup with a path of lens segments; the registry
// folds them into an aggregate lens that records use to load and save
// resources:
//
//	docs := model.NewRegistry("document")
//	title := docs.MustDeclare("title", rdf.DC11Title, lens.First(), lens.LiteralToString())
//
//	rec, err := docs.Find(ctx, repo, "/objects/a")
//	name, _ := model.Value[string](rec, title)
//
// Registries form a tree with Extend: a child sees the declarations of its
// ancestors, including ones made after it was created, while its own
// declarations stay invisible to the parent and to siblings.
package model

import (
	"fmt"
	"sync"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/lens"
	"github.com/teranos/fedlens/rdf"
)

// IDAttribute is the reserved name of the resource identifier.
const IDAttribute = "id"

// Attr is a handle on one declared attribute. The zero Attr is invalid.
type Attr struct {
	name  string
	owner *Registry
}

// Name returns the attribute name.
func (a Attr) Name() string { return a.name }

// Valid reports whether a came from a declaration.
func (a Attr) Valid() bool { return a.owner != nil }

func (a Attr) String() string {
	if a.owner == nil {
		return "<invalid attr>"
	}
	return a.owner.name + "." + a.name
}

type declaration struct {
	name     string
	lens     lens.Lens
	required bool
}

// Registry is the attribute table of a model type.
//
// Reads and declarations may run concurrently. The aggregate lens is built
// on first use and cached; every declaration on the registry or on any
// ancestor invalidates the cache before it returns.
type Registry struct {
	name   string
	parent *Registry

	mu    sync.RWMutex
	decls []declaration
	index map[string]int

	// gen counts declarations on this registry. The cache is valid for
	// the sum of gen over the registry and its ancestors.
	gen      uint64
	cache    *lens.AggregateLens
	cacheGen uint64
}

// NewRegistry returns an empty registry for the model type name.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, index: map[string]int{}}
}

// Extend returns a child registry for the model type name that inherits
// every declaration of r.
func (r *Registry) Extend(name string) *Registry {
	child := NewRegistry(name)
	child.parent = r
	return child
}

// Name returns the model type name.
func (r *Registry) Name() string { return r.name }

// Parent returns the registry r extends, or nil.
func (r *Registry) Parent() *Registry { return r.parent }

// Declare adds or replaces the attribute name. Path segments are lenses or
// rdf.IRI values, which stand for lens.GetPredicate; they are composed
// left to right.
func (r *Registry) Declare(name string, path ...any) (Attr, error) {
	if name == IDAttribute {
		return Attr{}, errors.Wrapf(errors.ErrReservedAttributeName, "%s: %q names the resource identifier", r.name, name)
	}
	if name == "" {
		return Attr{}, errors.NewInvalidRequestError("%s: empty attribute name", r.name)
	}
	l, err := compilePath(path)
	if err != nil {
		return Attr{}, errors.Wrapf(err, "%s.%s", r.name, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	d := declaration{name: name, lens: l}
	if i, ok := r.index[name]; ok {
		d.required = r.decls[i].required
		r.decls[i] = d
	} else {
		r.index[name] = len(r.decls)
		r.decls = append(r.decls, d)
	}
	r.invalidateLocked()
	return Attr{name: name, owner: r}, nil
}

// MustDeclare is Declare for package-level registration. It panics on
// error.
func (r *Registry) MustDeclare(name string, path ...any) Attr {
	a, err := r.Declare(name, path...)
	if err != nil {
		panic(err)
	}
	return a
}

// Require marks declared attributes as required by Validate.
func (r *Registry) Require(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		i, ok := r.index[name]
		if !ok {
			return errors.Wrapf(errors.ErrUnexpectedAttribute, "%s: cannot require undeclared %q", r.name, name)
		}
		r.decls[i].required = true
	}
	return nil
}

// Lookup returns the attribute name as seen by r, searching ancestors
// when r does not declare it.
func (r *Registry) Lookup(name string) (Attr, bool) {
	for reg := r; reg != nil; reg = reg.parent {
		reg.mu.RLock()
		_, ok := reg.index[name]
		reg.mu.RUnlock()
		if ok {
			return Attr{name: name, owner: reg}, true
		}
	}
	return Attr{}, false
}

// Attrs returns every attribute visible to r, ancestors first, in
// declaration order. An attribute redeclared by r keeps its inherited
// position.
func (r *Registry) Attrs() []Attr {
	fields, owners := r.collect()
	out := make([]Attr, len(fields))
	for i, f := range fields {
		out[i] = Attr{name: f.name, owner: owners[i]}
	}
	return out
}

// Names returns the visible attribute names in order.
func (r *Registry) Names() []string {
	fields, _ := r.collect()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// Required returns the names of the visible required attributes.
func (r *Registry) Required() []string {
	fields, _ := r.collect()
	var names []string
	for _, f := range fields {
		if f.required {
			names = append(names, f.name)
		}
	}
	return names
}

// Descends reports whether r is other or extends it.
func (r *Registry) Descends(other *Registry) bool {
	for reg := r; reg != nil; reg = reg.parent {
		if reg == other {
			return true
		}
	}
	return false
}

// Aggregate returns the aggregate lens over every visible attribute,
// rebuilding it when a declaration happened since it was cached.
func (r *Registry) Aggregate() *lens.AggregateLens {
	gen := r.generation()

	r.mu.RLock()
	cached, cachedGen := r.cache, r.cacheGen
	r.mu.RUnlock()
	if cached != nil && cachedGen == gen {
		return cached
	}

	fields, _ := r.collect()
	lf := make([]lens.Field, len(fields))
	for i, f := range fields {
		lf[i] = lens.Field{Name: f.name, Lens: f.lens}
	}
	agg := lens.Aggregate(lf...)

	// a declaration racing with the build bumps gen, so storing under the
	// generation read before the build can only leave a stale entry that
	// the next call replaces
	r.mu.Lock()
	r.cache, r.cacheGen = agg, gen
	r.mu.Unlock()
	return agg
}

// invalidateLocked drops the cached aggregate. r.mu must be held for
// writing.
func (r *Registry) invalidateLocked() {
	r.gen++
	r.cache = nil
	r.cacheGen = 0
}

func (r *Registry) generation() uint64 {
	var sum uint64
	for reg := r; reg != nil; reg = reg.parent {
		reg.mu.RLock()
		sum += reg.gen
		reg.mu.RUnlock()
	}
	return sum
}

// collect snapshots the visible declarations. A redeclared name replaces
// the inherited entry in place.
func (r *Registry) collect() ([]declaration, []*Registry) {
	var chain []*Registry
	for reg := r; reg != nil; reg = reg.parent {
		chain = append(chain, reg)
	}

	var (
		decls  []declaration
		owners []*Registry
		pos    = map[string]int{}
	)
	for i := len(chain) - 1; i >= 0; i-- {
		reg := chain[i]
		reg.mu.RLock()
		for _, d := range reg.decls {
			if j, ok := pos[d.name]; ok {
				decls[j], owners[j] = d, reg
				continue
			}
			pos[d.name] = len(decls)
			decls = append(decls, d)
			owners = append(owners, reg)
		}
		reg.mu.RUnlock()
	}
	return decls, owners
}

// compilePath composes path segments into one lens.
func compilePath(path []any) (lens.Lens, error) {
	if len(path) == 0 {
		return nil, errors.NewInvalidRequestError("empty attribute path")
	}
	segments := make([]lens.Lens, 0, len(path))
	for i, seg := range path {
		switch s := seg.(type) {
		case lens.Lens:
			segments = append(segments, s)
		case rdf.IRI:
			segments = append(segments, lens.GetPredicate(s))
		default:
			return nil, errors.TypeMismatchf("path segment %d: %s", i, describeSegment(seg))
		}
	}
	return lens.Chain(segments...), nil
}

func describeSegment(seg any) string {
	if seg == nil {
		return "nil is not a lens"
	}
	return fmt.Sprintf("%T is not a lens or an rdf.IRI", seg)
}
