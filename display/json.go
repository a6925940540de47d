package display

import (
	"encoding/json"
	"sort"

	"github.com/beevik/etree"

	"github.com/teranos/fedlens/lens"
	"github.com/teranos/fedlens/rdf"
)

// MarshalJSON marshals v with indentation after converting lens values to
// plain data.
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(Value(v), "", "  ")
}

type identified interface {
	ID() string
}

// Value converts a value read through a lens into strings, slices and maps.
// RDF terms become N-Triples, XML documents become markup, and records and
// resources become their identifiers.
func Value(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case rdf.Term:
		return rdf.FormatTerm(x)
	case *etree.Document:
		s, err := x.WriteToString()
		if err != nil {
			return err.Error()
		}
		return s
	case *etree.Element:
		doc := etree.NewDocument()
		doc.SetRoot(x.Copy())
		return Value(doc)
	case identified:
		return x.ID()
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = Value(e)
		}
		return out
	case lens.Attributes:
		return Value(map[string]interface{}(x))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = Value(e)
		}
		return out
	default:
		return x
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
