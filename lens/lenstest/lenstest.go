// Package lenstest checks the lens laws:
//
//	GetPut:    Put(s, Get(s)) == s
//	PutGet:    Get(Put(s, v)) == v
//	CreateGet: Get(Create(v)) == v
//
// Structural absence on Get (errors.IsAbsent) reads as a nil view, the
// convention the aggregate lens uses, so a law such as GetPut over an
// empty sequence checks Put(s, nil) == s.
package lenstest

import (
	"fmt"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/lens"
)

// Checker runs law checks against one lens.
type Checker struct {
	Lens lens.Lens

	// Equal compares an expected and an actual value. Defaults to
	// Equivalent.
	Equal func(want, got any) bool

	// Clone copies a source before it is handed to a lens that may mutate
	// it. Defaults to Clone.
	Clone func(any) any

	// CreateUnsupported declares that Create must fail with
	// errors.ErrNotImplemented instead of satisfying CreateGet.
	CreateUnsupported bool
}

// Check runs every law for l over sources and values.
func Check(t *testing.T, l lens.Lens, sources, values []any) {
	t.Helper()
	Checker{Lens: l}.Run(t, sources, values)
}

// Run checks GetPut for every source, PutGet for every source and value
// pair, and CreateGet for every value, each as a subtest.
func (c Checker) Run(t *testing.T, sources, values []any) {
	t.Helper()
	for i, s := range sources {
		t.Run(fmt.Sprintf("GetPut/%d", i), func(t *testing.T) {
			c.GetPut(t, s)
		})
		for j, v := range values {
			t.Run(fmt.Sprintf("PutGet/%d/%d", i, j), func(t *testing.T) {
				c.PutGet(t, s, v)
			})
		}
	}
	for j, v := range values {
		t.Run(fmt.Sprintf("CreateGet/%d", j), func(t *testing.T) {
			c.CreateGet(t, v)
		})
	}
}

// GetPut checks Put(s, Get(s)) == s.
func (c Checker) GetPut(t testing.TB, source any) {
	t.Helper()
	view, err := c.Lens.Get(c.clone(source))
	if errors.IsAbsent(err) {
		view, err = nil, nil
	}
	require.NoError(t, err, "%s: get", c.Lens)

	got, err := c.Lens.Put(c.clone(source), view)
	require.NoError(t, err, "%s: put", c.Lens)
	assert.Truef(t, c.equal(source, got), "%s: GetPut\nwant: %s\ngot:  %s", c.Lens, Describe(source), Describe(got))
}

// PutGet checks Get(Put(s, v)) == v.
func (c Checker) PutGet(t testing.TB, source, value any) {
	t.Helper()
	updated, err := c.Lens.Put(c.clone(source), value)
	require.NoError(t, err, "%s: put", c.Lens)

	got, err := c.Lens.Get(updated)
	if errors.IsAbsent(err) {
		got, err = nil, nil
	}
	require.NoError(t, err, "%s: get", c.Lens)
	assert.Truef(t, c.equal(value, got), "%s: PutGet\nwant: %s\ngot:  %s", c.Lens, Describe(value), Describe(got))
}

// CreateGet checks Get(Create(v)) == v, or that Create is unsupported.
func (c Checker) CreateGet(t testing.TB, value any) {
	t.Helper()
	created, err := c.Lens.Create(value)
	if c.CreateUnsupported {
		require.Error(t, err, "%s: create", c.Lens)
		assert.True(t, errors.Is(err, errors.ErrNotImplemented), "%s: create failed with %v", c.Lens, err)
		return
	}
	require.NoError(t, err, "%s: create", c.Lens)

	got, err := c.Lens.Get(created)
	if errors.IsAbsent(err) {
		got, err = nil, nil
	}
	require.NoError(t, err, "%s: get", c.Lens)
	assert.Truef(t, c.equal(value, got), "%s: CreateGet\nwant: %s\ngot:  %s", c.Lens, Describe(value), Describe(got))
}

func (c Checker) equal(want, got any) bool {
	if c.Equal != nil {
		return c.Equal(want, got)
	}
	return Equivalent(want, got)
}

func (c Checker) clone(v any) any {
	if c.Clone != nil {
		return c.Clone(v)
	}
	return Clone(v)
}

// Equivalent compares lens sources and views: resources by graph and
// identity, XML documents by serialization, sequences element by element
// and anything else with assert.ObjectsAreEqual. A nil sequence equals an
// empty one.
func Equivalent(want, got any) bool {
	switch w := want.(type) {
	case *ldp.Resource:
		g, ok := got.(*ldp.Resource)
		return ok && w.Equal(g)
	case *etree.Document:
		g, ok := got.(*etree.Document)
		return ok && xmlString(w) == xmlString(g)
	case []any:
		g, ok := got.([]any)
		if !ok && got != nil {
			return false
		}
		if len(w) != len(g) {
			return false
		}
		for i := range w {
			if !Equivalent(w[i], g[i]) {
				return false
			}
		}
		return true
	case lens.Attributes:
		g, ok := got.(lens.Attributes)
		if !ok || len(w) != len(g) {
			return false
		}
		for k, v := range w {
			gv, present := g[k]
			if !present || !Equivalent(v, gv) {
				return false
			}
		}
		return true
	case nil:
		if g, ok := got.([]any); ok {
			return len(g) == 0
		}
	}
	return assert.ObjectsAreEqual(want, got)
}

// Clone deep-copies the sources lenses mutate in place.
func Clone(v any) any {
	switch s := v.(type) {
	case *ldp.Resource:
		return s.Clone()
	case *etree.Document:
		return s.Copy()
	case []any:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = Clone(item)
		}
		return out
	case lens.Attributes:
		out := make(lens.Attributes, len(s))
		for k, item := range s {
			out[k] = Clone(item)
		}
		return out
	}
	return v
}

// Describe renders v for failure messages.
func Describe(v any) string {
	switch s := v.(type) {
	case *ldp.Resource:
		return fmt.Sprintf("%s %s", s, s.Graph().Canonical())
	case *etree.Document:
		return xmlString(s)
	}
	return fmt.Sprintf("%#v", v)
}

func xmlString(doc *etree.Document) string {
	if doc == nil {
		return ""
	}
	s, err := doc.WriteToString()
	if err != nil {
		return "<unserializable: " + err.Error() + ">"
	}
	return s
}
