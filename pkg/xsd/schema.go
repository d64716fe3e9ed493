package xsd

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

const schemaNamespace = "http://www.w3.org/2001/XMLSchema"

var (
	// ErrSchemaNotFound is returned when a schema file does not exist.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrInvalidSchema is returned for schemas that cannot be parsed or use
	// constructs this package does not implement.
	ErrInvalidSchema = errors.New("invalid schema")
)

const unbounded = -1

// Schema is a parsed schema. It is immutable after Parse.
type Schema struct {
	name     string
	elements map[string]*elementDecl
}

type elementDecl struct {
	name    string
	complex *complexType
	simple  *simpleType
}

type complexType struct {
	content    *particle
	attributes []*attributeDecl
	// text is set for simple content; nil means element-only content.
	text  *simpleType
	mixed bool
}

type particleKind int

const (
	particleElement particleKind = iota
	particleSequence
	particleChoice
	particleAll
)

type particle struct {
	kind     particleKind
	min, max int
	elem     *elementDecl
	children []*particle
}

type attributeDecl struct {
	name     string
	required bool
	fixed    *string
	typ      *simpleType
}

type simpleType struct {
	name    string
	builtin string
	base    *simpleType

	enums          []string
	patterns       []*regexp.Regexp
	length         int
	minLength      int
	maxLength      int
	totalDigits    int
	fractionDigits int
	minInclusive   *decimal.Decimal
	maxInclusive   *decimal.Decimal
	minExclusive   *decimal.Decimal
}

// parser resolves named definitions lazily so that declarations may appear
// in any order in the schema document.
type parser struct {
	xsPrefix string

	rawComplex map[string]*etree.Element
	rawSimple  map[string]*etree.Element
	rawElement map[string]*etree.Element

	complex  map[string]*complexType
	simple   map[string]*simpleType
	elements map[string]*elementDecl
}

// Parse reads a schema document.
func Parse(name string, data []byte) (*Schema, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, name, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "schema" {
		return nil, fmt.Errorf("%w: %s: root element is not a schema", ErrInvalidSchema, name)
	}

	p := &parser{
		xsPrefix:   root.Space,
		rawComplex: make(map[string]*etree.Element),
		rawSimple:  make(map[string]*etree.Element),
		rawElement: make(map[string]*etree.Element),
		complex:    make(map[string]*complexType),
		simple:     make(map[string]*simpleType),
		elements:   make(map[string]*elementDecl),
	}
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Value == schemaNamespace {
			p.xsPrefix = a.Key
		}
	}

	for _, child := range root.ChildElements() {
		declName := child.SelectAttrValue("name", "")
		switch child.Tag {
		case "element":
			p.rawElement[declName] = child
		case "complexType":
			p.rawComplex[declName] = child
		case "simpleType":
			p.rawSimple[declName] = child
		case "annotation", "import", "include":
		default:
			return nil, fmt.Errorf("%w: %s: unsupported top-level <%s>", ErrInvalidSchema, name, child.Tag)
		}
	}

	s := &Schema{name: name, elements: make(map[string]*elementDecl)}
	for elName := range p.rawElement {
		decl, err := p.globalElement(elName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, name, err)
		}
		s.elements[elName] = decl
	}
	return s, nil
}

// Name is the name the schema was loaded under.
func (s *Schema) Name() string { return s.name }

func (p *parser) globalElement(name string) (*elementDecl, error) {
	if decl, ok := p.elements[name]; ok {
		return decl, nil
	}
	raw, ok := p.rawElement[name]
	if !ok {
		return nil, fmt.Errorf("element %q is not declared", name)
	}
	decl := &elementDecl{name: name}
	p.elements[name] = decl
	if err := p.fillElement(decl, raw); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *parser) fillElement(decl *elementDecl, el *etree.Element) error {
	if typ := el.SelectAttrValue("type", ""); typ != "" {
		return p.resolveType(decl, typ)
	}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "complexType":
			ct, err := p.parseComplexType(child)
			if err != nil {
				return fmt.Errorf("element %q: %w", decl.name, err)
			}
			decl.complex = ct
			return nil
		case "simpleType":
			st, err := p.parseSimpleType(child, "")
			if err != nil {
				return fmt.Errorf("element %q: %w", decl.name, err)
			}
			decl.simple = st
			return nil
		}
	}
	// No type at all means xs:anyType; treat it as a string.
	decl.simple = builtinType("string")
	return nil
}

func (p *parser) resolveType(decl *elementDecl, qname string) error {
	prefix, local := splitQName(qname)
	if prefix == p.xsPrefix && isBuiltin(local) {
		decl.simple = builtinType(local)
		return nil
	}
	if _, ok := p.rawComplex[local]; ok {
		ct, err := p.namedComplex(local)
		if err != nil {
			return err
		}
		decl.complex = ct
		return nil
	}
	st, err := p.namedSimple(qname)
	if err != nil {
		return fmt.Errorf("element %q: %w", decl.name, err)
	}
	decl.simple = st
	return nil
}

func (p *parser) namedComplex(name string) (*complexType, error) {
	if ct, ok := p.complex[name]; ok {
		return ct, nil
	}
	raw, ok := p.rawComplex[name]
	if !ok {
		return nil, fmt.Errorf("complex type %q is not declared", name)
	}
	ct := &complexType{}
	p.complex[name] = ct
	parsed, err := p.parseComplexType(raw)
	if err != nil {
		return nil, fmt.Errorf("complex type %q: %w", name, err)
	}
	*ct = *parsed
	return ct, nil
}

// namedSimple resolves a built-in or user defined simple type reference.
func (p *parser) namedSimple(qname string) (*simpleType, error) {
	prefix, local := splitQName(qname)
	if prefix == p.xsPrefix && isBuiltin(local) {
		return builtinType(local), nil
	}
	if st, ok := p.simple[local]; ok {
		return st, nil
	}
	raw, ok := p.rawSimple[local]
	if !ok {
		return nil, fmt.Errorf("type %q is not declared", qname)
	}
	st, err := p.parseSimpleType(raw, local)
	if err != nil {
		return nil, err
	}
	p.simple[local] = st
	return st, nil
}

func (p *parser) parseComplexType(el *etree.Element) (*complexType, error) {
	ct := &complexType{mixed: el.SelectAttrValue("mixed", "") == "true"}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "sequence", "choice", "all":
			part, err := p.parseGroup(child)
			if err != nil {
				return nil, err
			}
			ct.content = part
		case "attribute":
			attr, err := p.parseAttribute(child)
			if err != nil {
				return nil, err
			}
			ct.attributes = append(ct.attributes, attr)
		case "simpleContent":
			if err := p.parseSimpleContent(ct, child); err != nil {
				return nil, err
			}
		case "annotation", "anyAttribute":
		default:
			return nil, fmt.Errorf("unsupported <%s> in complexType", child.Tag)
		}
	}
	return ct, nil
}

func (p *parser) parseSimpleContent(ct *complexType, el *etree.Element) error {
	ext := el.SelectElement("extension")
	if ext == nil {
		return fmt.Errorf("simpleContent requires an extension")
	}
	base, err := p.namedSimple(ext.SelectAttrValue("base", ""))
	if err != nil {
		return err
	}
	ct.text = base
	for _, child := range ext.ChildElements() {
		if child.Tag != "attribute" {
			continue
		}
		attr, err := p.parseAttribute(child)
		if err != nil {
			return err
		}
		ct.attributes = append(ct.attributes, attr)
	}
	return nil
}

func (p *parser) parseGroup(el *etree.Element) (*particle, error) {
	part := &particle{}
	switch el.Tag {
	case "sequence":
		part.kind = particleSequence
	case "choice":
		part.kind = particleChoice
	case "all":
		part.kind = particleAll
	}
	var err error
	if part.min, part.max, err = occurs(el); err != nil {
		return nil, err
	}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "element":
			c, err := p.parseLocalElement(child)
			if err != nil {
				return nil, err
			}
			part.children = append(part.children, c)
		case "sequence", "choice":
			if part.kind == particleAll {
				return nil, fmt.Errorf("<all> may only contain elements")
			}
			c, err := p.parseGroup(child)
			if err != nil {
				return nil, err
			}
			part.children = append(part.children, c)
		case "annotation":
		default:
			return nil, fmt.Errorf("unsupported <%s> in <%s>", child.Tag, el.Tag)
		}
	}
	return part, nil
}

func (p *parser) parseLocalElement(el *etree.Element) (*particle, error) {
	min, max, err := occurs(el)
	if err != nil {
		return nil, err
	}
	part := &particle{kind: particleElement, min: min, max: max}

	if ref := el.SelectAttrValue("ref", ""); ref != "" {
		_, local := splitQName(ref)
		decl, err := p.globalElement(local)
		if err != nil {
			return nil, err
		}
		part.elem = decl
		return part, nil
	}

	decl := &elementDecl{name: el.SelectAttrValue("name", "")}
	if decl.name == "" {
		return nil, fmt.Errorf("local element without name or ref")
	}
	if err := p.fillElement(decl, el); err != nil {
		return nil, err
	}
	part.elem = decl
	return part, nil
}

func (p *parser) parseAttribute(el *etree.Element) (*attributeDecl, error) {
	attr := &attributeDecl{
		name:     el.SelectAttrValue("name", ""),
		required: el.SelectAttrValue("use", "optional") == "required",
	}
	if attr.name == "" {
		return nil, fmt.Errorf("attribute without name")
	}
	if fixed := el.SelectAttr("fixed"); fixed != nil {
		v := fixed.Value
		attr.fixed = &v
	}
	if typ := el.SelectAttrValue("type", ""); typ != "" {
		st, err := p.namedSimple(typ)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.name, err)
		}
		attr.typ = st
		return attr, nil
	}
	if inline := el.SelectElement("simpleType"); inline != nil {
		st, err := p.parseSimpleType(inline, "")
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.name, err)
		}
		attr.typ = st
		return attr, nil
	}
	attr.typ = builtinType("string")
	return attr, nil
}

func (p *parser) parseSimpleType(el *etree.Element, name string) (*simpleType, error) {
	res := el.SelectElement("restriction")
	if res == nil {
		return nil, fmt.Errorf("simple type %q: only restrictions are supported", name)
	}
	base, err := p.namedSimple(res.SelectAttrValue("base", ""))
	if err != nil {
		return nil, fmt.Errorf("simple type %q: %w", name, err)
	}
	st := &simpleType{
		name:           name,
		builtin:        base.builtin,
		base:           base,
		length:         -1,
		minLength:      -1,
		maxLength:      -1,
		totalDigits:    -1,
		fractionDigits: -1,
	}

	for _, facet := range res.ChildElements() {
		value := facet.SelectAttrValue("value", "")
		switch facet.Tag {
		case "enumeration":
			st.enums = append(st.enums, value)
		case "pattern":
			re, err := regexp.Compile("^(?:" + value + ")$")
			if err != nil {
				return nil, fmt.Errorf("simple type %q: pattern %q: %w", name, value, err)
			}
			st.patterns = append(st.patterns, re)
		case "length", "minLength", "maxLength", "totalDigits", "fractionDigits":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("simple type %q: invalid %s %q", name, facet.Tag, value)
			}
			switch facet.Tag {
			case "length":
				st.length = n
			case "minLength":
				st.minLength = n
			case "maxLength":
				st.maxLength = n
			case "totalDigits":
				st.totalDigits = n
			case "fractionDigits":
				st.fractionDigits = n
			}
		case "minInclusive", "maxInclusive", "minExclusive":
			d, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("simple type %q: invalid %s %q", name, facet.Tag, value)
			}
			switch facet.Tag {
			case "minInclusive":
				st.minInclusive = &d
			case "maxInclusive":
				st.maxInclusive = &d
			case "minExclusive":
				st.minExclusive = &d
			}
		case "whiteSpace", "annotation":
		default:
			return nil, fmt.Errorf("simple type %q: unsupported facet %s", name, facet.Tag)
		}
	}
	return st, nil
}

func occurs(el *etree.Element) (int, int, error) {
	min, max := 1, 1
	if v := el.SelectAttrValue("minOccurs", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid minOccurs %q", v)
		}
		min = n
	}
	if v := el.SelectAttrValue("maxOccurs", ""); v != "" {
		if v == "unbounded" {
			max = unbounded
		} else {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return 0, 0, fmt.Errorf("invalid maxOccurs %q", v)
			}
			max = n
		}
	}
	if max != unbounded && max < min {
		return 0, 0, fmt.Errorf("maxOccurs %d is smaller than minOccurs %d", max, min)
	}
	return min, max, nil
}

func splitQName(qname string) (prefix, local string) {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[:i], qname[i+1:]
	}
	return "", qname
}
