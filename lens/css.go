package lens

import (
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/teranos/fedlens/errors"
)

// selector is a compiled CSS selector: compounds joined by combinators,
// matched right to left. Supported: type and universal selectors, #id,
// .class, [attr], [attr=value], the descendant combinator (whitespace) and
// the child combinator (>). ns|tag matches a prefixed element.
type selector struct {
	compounds   []compound
	combinators []byte // combinators[i] joins compounds[i] and compounds[i+1]
}

type compound struct {
	space, tag string // tag "" or "*" matches any element
	id         string
	classes    []string
	attrs      []attrTest
}

type attrTest struct {
	key      string
	value    string
	hasValue bool
}

func compileSelector(sel string) (selector, error) {
	p := &selectorParser{src: strings.TrimSpace(sel)}
	if p.src == "" {
		return selector{}, errors.Newf("empty CSS selector")
	}
	s, err := p.parse()
	if err != nil {
		return selector{}, errors.Wrapf(err, "invalid CSS selector %q", sel)
	}
	return s, nil
}

// ValidateSelector reports an error when sel is outside the selector
// grammar AtCss supports.
func ValidateSelector(sel string) error {
	_, err := compileSelector(sel)
	return err
}

type selectorParser struct {
	src string
	pos int
}

func (p *selectorParser) parse() (selector, error) {
	var s selector
	for {
		c, err := p.compound()
		if err != nil {
			return s, err
		}
		s.compounds = append(s.compounds, c)

		sawSpace := p.skipSpace()
		if p.pos >= len(p.src) {
			return s, nil
		}
		switch p.src[p.pos] {
		case '>':
			p.pos++
			p.skipSpace()
			s.combinators = append(s.combinators, '>')
		case ',', '+', '~', ':':
			return s, errors.Newf("unsupported %q at offset %d", p.src[p.pos], p.pos)
		default:
			if !sawSpace {
				return s, errors.Newf("unexpected %q at offset %d", p.src[p.pos], p.pos)
			}
			s.combinators = append(s.combinators, ' ')
		}
	}
}

func (p *selectorParser) compound() (compound, error) {
	var c compound
	start := p.pos
	if p.peek() == '*' {
		p.pos++
		c.tag = "*"
	} else if name := p.ident(); name != "" {
		c.tag = name
		if p.peek() == '|' {
			p.pos++
			c.space = name
			if c.tag = p.ident(); c.tag == "" {
				return c, errors.Newf("missing element name after %q", name+"|")
			}
		}
	}

	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '#':
			p.pos++
			if c.id = p.ident(); c.id == "" {
				return c, errors.Newf("missing id at offset %d", p.pos)
			}
		case '.':
			p.pos++
			class := p.ident()
			if class == "" {
				return c, errors.Newf("missing class at offset %d", p.pos)
			}
			c.classes = append(c.classes, class)
		case '[':
			p.pos++
			a, err := p.attr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
		default:
			if p.pos == start {
				return c, errors.Newf("unexpected %q at offset %d", p.src[p.pos], p.pos)
			}
			return c, nil
		}
	}
	if p.pos == start {
		return c, errors.Newf("selector ends after a combinator")
	}
	return c, nil
}

func (p *selectorParser) attr() (attrTest, error) {
	var a attrTest
	p.skipSpace()
	if a.key = p.ident(); a.key == "" {
		return a, errors.Newf("missing attribute name at offset %d", p.pos)
	}
	p.skipSpace()
	switch p.peek() {
	case ']':
		p.pos++
		return a, nil
	case '=':
		p.pos++
	default:
		return a, errors.Newf("unsupported attribute operator at offset %d", p.pos)
	}
	p.skipSpace()
	a.hasValue = true
	if q := p.peek(); q == '"' || q == '\'' {
		end := strings.IndexByte(p.src[p.pos+1:], q)
		if end < 0 {
			return a, errors.Newf("unterminated string at offset %d", p.pos)
		}
		a.value = p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
	} else if a.value = p.ident(); a.value == "" {
		return a, errors.Newf("missing attribute value at offset %d", p.pos)
	}
	p.skipSpace()
	if p.peek() != ']' {
		return a, errors.Newf("expected ] at offset %d", p.pos)
	}
	p.pos++
	return a, nil
}

func (p *selectorParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *selectorParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *selectorParser) skipSpace() bool {
	start := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
	return p.pos > start
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// first returns the first element below root, in document order, that
// matches s.
func (s selector) first(root *etree.Element) *etree.Element {
	for _, child := range root.ChildElements() {
		if s.match(child, len(s.compounds)-1) {
			return child
		}
		if found := s.first(child); found != nil {
			return found
		}
	}
	return nil
}

func (s selector) match(el *etree.Element, i int) bool {
	if !s.compounds[i].match(el) {
		return false
	}
	if i == 0 {
		return true
	}
	if s.combinators[i-1] == '>' {
		parent := el.Parent()
		return isElement(parent) && s.match(parent, i-1)
	}
	for p := el.Parent(); isElement(p); p = p.Parent() {
		if s.match(p, i-1) {
			return true
		}
	}
	return false
}

// isElement excludes the pseudo-element holding a document's children.
func isElement(el *etree.Element) bool {
	return el != nil && el.Parent() != nil
}

func (c compound) match(el *etree.Element) bool {
	if c.tag != "" && c.tag != "*" && c.tag != el.Tag {
		return false
	}
	if c.space != "" && c.space != el.Space {
		return false
	}
	if c.id != "" && el.SelectAttrValue("id", "") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(el.SelectAttrValue("class", ""))
		for _, want := range c.classes {
			if !slices.Contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		attr := el.SelectAttr(a.key)
		if attr == nil || (a.hasValue && attr.Value != a.value) {
			return false
		}
	}
	return true
}
