package lens

import (
	"strings"

	"github.com/teranos/fedlens/errors"
)

type composite struct {
	parts []Lens // outermost first
}

// Compose binds inner to the value outer focuses on:
//
//	Get(s)    = inner.Get(outer.Get(s))
//	Put(s, v) = outer.Put(s, inner.Put(outer.Get(s), v))
//	Create(v) = outer.Create(inner.Create(v))
//
// When outer.Get reports structural absence (errors.IsAbsent), Put builds
// the inner part with inner.Create instead. Create fails with the
// innermost errors.ErrNotImplemented.
//
// Nested compositions are flattened and identities dropped, so
// composition is associative under Equal.
func Compose(outer, inner Lens) Lens {
	return Chain(outer, inner)
}

// Chain composes segments left to right, outermost first. An empty chain
// is Identity.
func Chain(segments ...Lens) Lens {
	var parts []Lens
	for _, s := range segments {
		switch l := s.(type) {
		case nil, identity:
		case composite:
			parts = append(parts, l.parts...)
		default:
			parts = append(parts, l)
		}
	}
	switch len(parts) {
	case 0:
		return Identity()
	case 1:
		return parts[0]
	}
	return composite{parts: parts}
}

// Parts returns the segments of a chain, outermost first.
func Parts(l Lens) []Lens {
	if c, ok := l.(composite); ok {
		return append([]Lens{}, c.parts...)
	}
	return []Lens{l}
}

func (c composite) Get(source any) (any, error) {
	v := source
	for _, p := range c.parts {
		var err error
		if v, err = p.Get(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (c composite) Put(source, value any) (any, error) {
	return put(c.parts, source, value)
}

func put(parts []Lens, source, value any) (any, error) {
	outer := parts[0]
	if len(parts) == 1 {
		return outer.Put(source, value)
	}
	view, err := outer.Get(source)
	var inner any
	switch {
	case errors.IsAbsent(err):
		inner, err = create(parts[1:], value)
	case err != nil:
		return nil, err
	default:
		inner, err = put(parts[1:], view, value)
	}
	if err != nil {
		return nil, err
	}
	return outer.Put(source, inner)
}

func (c composite) Create(value any) (any, error) {
	return create(c.parts, value)
}

func create(parts []Lens, value any) (any, error) {
	v := value
	for i := len(parts) - 1; i >= 0; i-- {
		var err error
		if v, err = parts[i].Create(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (composite) Kind() Kind { return KindCompose }

func (c composite) String() string {
	names := make([]string, len(c.parts))
	for i, p := range c.parts {
		names[i] = p.String()
	}
	return strings.Join(names, " | ")
}

func (c composite) Equal(other Lens) bool {
	o, ok := other.(composite)
	if !ok || len(o.parts) != len(c.parts) {
		return false
	}
	for i := range c.parts {
		if !c.parts[i].Equal(o.parts[i]) {
			return false
		}
	}
	return true
}
