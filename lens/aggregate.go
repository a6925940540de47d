package lens

import (
	"fmt"
	"slices"
	"strings"

	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/ldp"
)

// Field is one named attribute of an aggregate.
type Field struct {
	Name string
	Lens Lens
}

// AggregateLens maps a whole resource to Attributes, one entry per field.
type AggregateLens struct {
	fields []Field
	index  map[string]int
}

// Aggregate folds fields into one lens, keeping their order. A later field
// with the name of an earlier one replaces it in place.
func Aggregate(fields ...Field) *AggregateLens {
	a := &AggregateLens{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if i, ok := a.index[f.Name]; ok {
			a.fields[i] = f
			continue
		}
		a.index[f.Name] = len(a.fields)
		a.fields = append(a.fields, f)
	}
	return a
}

// Fields returns the fields in declaration order.
func (a *AggregateLens) Fields() []Field {
	return slices.Clone(a.fields)
}

// Names returns the field names in declaration order.
func (a *AggregateLens) Names() []string {
	names := make([]string, len(a.fields))
	for i, f := range a.fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the lens declared for name.
func (a *AggregateLens) Lookup(name string) (Lens, bool) {
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.fields[i].Lens, true
}

// Get applies every field's Get to source. Structural absence reads as
// nil; any other failure is returned with the field name.
func (a *AggregateLens) Get(source any) (any, error) {
	return a.GetAttributes(source)
}

// GetAttributes is Get with a typed result.
func (a *AggregateLens) GetAttributes(source any) (Attributes, error) {
	out := make(Attributes, len(a.fields))
	for _, f := range a.fields {
		v, err := f.Lens.Get(source)
		switch {
		case errors.IsAbsent(err):
			v = nil
		case err != nil:
			return nil, errors.Wrapf(err, "attribute %q", f.Name)
		}
		out[f.Name] = v
	}
	return out, nil
}

// Put applies the lens of every key present in value, in field order.
// Keys with no field fail with errors.ErrUnexpectedAttribute before source
// is touched. Absent keys leave their part of source alone.
func (a *AggregateLens) Put(source, value any) (any, error) {
	attrs, err := a.attributes(value)
	if err != nil {
		return nil, err
	}
	for _, f := range a.fields {
		v, present := attrs[f.Name]
		if !present {
			continue
		}
		if source, err = f.Lens.Put(source, v); err != nil {
			return nil, errors.Wrapf(err, "attribute %q", f.Name)
		}
	}
	return source, nil
}

// Create puts value into a new ldp.Resource, with the same strictness as
// Put.
func (a *AggregateLens) Create(value any) (any, error) {
	if _, err := a.attributes(value); err != nil {
		return nil, err
	}
	return a.Put(ldp.NewResource(), value)
}

func (a *AggregateLens) attributes(value any) (Attributes, error) {
	var attrs Attributes
	switch v := value.(type) {
	case nil:
		return Attributes{}, nil
	case Attributes:
		attrs = v
	case map[string]any:
		attrs = v
	default:
		return nil, mismatch(a, "value", "attributes", value)
	}
	var unexpected []string
	for name := range attrs {
		if _, ok := a.index[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		slices.Sort(unexpected)
		return nil, errors.Wrapf(errors.ErrUnexpectedAttribute, "%s: %s", a, strings.Join(unexpected, ", "))
	}
	return attrs, nil
}

func (*AggregateLens) Kind() Kind { return KindAggregate }

func (a *AggregateLens) String() string {
	return fmt.Sprintf("aggregate(%s)", strings.Join(a.Names(), ", "))
}

// Equal reports whether other aggregates equal lenses under the same names
// in the same order.
func (a *AggregateLens) Equal(other Lens) bool {
	o, ok := other.(*AggregateLens)
	if !ok || len(o.fields) != len(a.fields) {
		return false
	}
	for i, f := range a.fields {
		if o.fields[i].Name != f.Name || !Equal(o.fields[i].Lens, f.Lens) {
			return false
		}
	}
	return true
}
