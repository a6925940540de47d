package lens

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/teranos/fedlens/errors"
)

type asDom struct{}

// AsDom parses a string into an XML document. Put and Create serialize the
// document and ignore the source. Every Get parses afresh.
func AsDom() Lens { return asDom{} }

func (l asDom) Get(source any) (any, error) {
	if source == nil {
		return nil, nil
	}
	s, ok := source.(string)
	if !ok {
		return nil, mismatch(l, "source", "a string", source)
	}
	doc := etree.NewDocument()
	if s == "" {
		return doc, nil
	}
	if err := doc.ReadFromString(s); err != nil {
		return nil, errors.Wrapf(err, "%s: failed to parse XML", l)
	}
	return doc, nil
}

func (l asDom) Put(_ any, value any) (any, error) {
	return l.Create(value)
}

func (l asDom) Create(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	doc, ok := value.(*etree.Document)
	if !ok {
		return nil, mismatch(l, "value", "an *etree.Document", value)
	}
	s, err := doc.WriteToString()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to serialize XML", l)
	}
	return s, nil
}

func (asDom) Kind() Kind     { return KindAsDom }
func (asDom) String() string { return "as_dom" }

func (asDom) Equal(other Lens) bool {
	_, ok := other.(asDom)
	return ok
}

type atCss struct {
	selector string
	compiled selector
	err      error
}

// AtCss focuses on the text content of the first element matching a CSS
// selector, in document order.
//
// Get fails with errors.ErrNodeNotFound when nothing matches. Put replaces
// the content of the matched element in place and returns the same
// document. Create fails with errors.ErrNotImplemented: a selector does not
// say what structure to build around the node.
//
// An invalid selector is reported by every operation.
func AtCss(sel string) Lens {
	compiled, err := compileSelector(sel)
	return atCss{selector: sel, compiled: compiled, err: err}
}

func (l atCss) find(source any) (*etree.Element, error) {
	if l.err != nil {
		return nil, l.err
	}
	doc, ok := source.(*etree.Document)
	if !ok {
		return nil, mismatch(l, "source", "an *etree.Document", source)
	}
	el := l.compiled.first(&doc.Element)
	if el == nil {
		return nil, errors.Wrapf(errors.ErrNodeNotFound, "%s", l)
	}
	return el, nil
}

func (l atCss) Get(source any) (any, error) {
	el, err := l.find(source)
	if err != nil {
		return nil, err
	}
	return textContent(el), nil
}

func (l atCss) Put(source, value any) (any, error) {
	el, err := l.find(source)
	if err != nil {
		return nil, err
	}
	s, err := contentString(l, value)
	if err != nil {
		return nil, err
	}
	setContent(el, s)
	return source, nil
}

func (l atCss) Create(any) (any, error) {
	return nil, notImplemented(l, "create")
}

func (atCss) Kind() Kind       { return KindAtCss }
func (l atCss) String() string { return fmt.Sprintf("at_css(%s)", l.selector) }

func (l atCss) Equal(other Lens) bool {
	o, ok := other.(atCss)
	return ok && o.selector == l.selector
}

type taggedNode struct {
	root, element, attr, value string
}

// TaggedNode focuses on the text of the <element attr="value"> child of the
// document's <root>, as in
//
//	<relationships>
//	  <relationship type="primary">p1</relationship>
//	</relationships>
//
// Unlike AtCss it builds what is missing: Put adds the root and the
// element, and Create returns a fresh document. Get yields "" when the
// element is absent, and putting "" where the element is absent leaves
// the document unchanged.
func TaggedNode(root, element, attr, value string) Lens {
	return taggedNode{root: root, element: element, attr: attr, value: value}
}

func (l taggedNode) lookup(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil || root.Tag != l.root {
		return nil
	}
	for _, child := range root.ChildElements() {
		if child.Tag == l.element && child.SelectAttrValue(l.attr, "") == l.value {
			return child
		}
	}
	return nil
}

func (l taggedNode) Get(source any) (any, error) {
	if source == nil {
		return "", nil
	}
	doc, ok := source.(*etree.Document)
	if !ok {
		return nil, mismatch(l, "source", "an *etree.Document", source)
	}
	if el := l.lookup(doc); el != nil {
		return textContent(el), nil
	}
	return "", nil
}

func (l taggedNode) Put(source, value any) (any, error) {
	s, err := contentString(l, value)
	if err != nil {
		return nil, err
	}
	var doc *etree.Document
	switch src := source.(type) {
	case nil:
		doc = etree.NewDocument()
	case *etree.Document:
		doc = src
	default:
		return nil, mismatch(l, "source", "an *etree.Document", source)
	}

	el := l.lookup(doc)
	if el == nil {
		if s == "" {
			return doc, nil
		}
		root := doc.Root()
		if root == nil {
			root = doc.CreateElement(l.root)
		} else if root.Tag != l.root {
			return nil, errors.Wrapf(errors.ErrNodeNotFound, "%s: document root is <%s>", l, root.Tag)
		}
		el = root.CreateElement(l.element)
		el.CreateAttr(l.attr, l.value)
	}
	setContent(el, s)
	return doc, nil
}

func (l taggedNode) Create(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return l.Put(etree.NewDocument(), value)
}

func (taggedNode) Kind() Kind { return KindTaggedNode }

func (l taggedNode) String() string {
	return fmt.Sprintf("tagged_node(%s/%s[%s=%s])", l.root, l.element, l.attr, l.value)
}

func (l taggedNode) Equal(other Lens) bool {
	o, ok := other.(taggedNode)
	return ok && o == l
}

func contentString(l Lens, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", mismatch(l, "value", "a string", value)
}

// textContent concatenates the character data below el.
func textContent(el *etree.Element) string {
	var b strings.Builder
	writeText(&b, el)
	return b.String()
}

func writeText(b *strings.Builder, el *etree.Element) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			writeText(b, t)
		}
	}
}

// setContent replaces every child of el with the text s.
func setContent(el *etree.Element, s string) {
	for len(el.Child) > 0 {
		el.RemoveChildAt(len(el.Child) - 1)
	}
	if s != "" {
		el.CreateText(s)
	}
}
