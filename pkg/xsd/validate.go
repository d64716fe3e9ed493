package xsd

import (
	"fmt"
	"sort"
	"strings"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Validate checks doc against the schema. source names the document in
// diagnostics.
func (s *Schema) Validate(source string, doc []byte) *Result {
	rp := &reporter{source: source, res: &Result{}}
	root := parseInstance(doc, rp)
	if root == nil {
		return rp.res
	}

	decl, ok := s.elements[root.name]
	if !ok {
		rp.add(CodeNoGlobalDecl, root.line, "Element '%s': No matching global declaration available for the validation root.", root.name)
		return rp.res
	}
	validateElement(rp, decl, root)
	return rp.res
}

func validateElement(rp *reporter, decl *elementDecl, n *node) {
	if decl.simple != nil {
		validateAttributes(rp, nil, n)
		if len(n.children) > 0 {
			rp.add(CodeSimpleTypeContent, n.line, "Element '%s': Element content is not allowed, because the type definition is simple.", n.name)
			return
		}
		if vio := decl.simple.check(n.text.String()); vio != nil {
			rp.add(vio.code, n.line, "Element '%s': %s", n.name, vio.msg)
		}
		return
	}

	ct := decl.complex
	validateAttributes(rp, ct.attributes, n)

	if ct.text != nil {
		if len(n.children) > 0 {
			rp.add(CodeSimpleTypeContent, n.line, "Element '%s': Element content is not allowed, because the content type is a simple type definition.", n.name)
			return
		}
		if vio := ct.text.check(n.text.String()); vio != nil {
			rp.add(vio.code, n.line, "Element '%s': %s", n.name, vio.msg)
		}
		return
	}

	if !ct.mixed && n.hasText() {
		rp.add(CodeElementOnly, n.line, "Element '%s': Character content other than whitespace is not allowed because the content type is 'element-only'.", n.name)
	}
	validateContent(rp, ct.content, n)
}

func validateAttributes(rp *reporter, decls []*attributeDecl, n *node) {
	seen := make(map[string]bool, len(n.attrs))
	for _, a := range n.attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") || a.Name.Space == xsiNamespace {
			continue
		}
		var decl *attributeDecl
		for _, d := range decls {
			if d.name == a.Name.Local {
				decl = d
				break
			}
		}
		if decl == nil {
			rp.add(CodeAttrNotAllowed, n.line, "Element '%s', attribute '%s': The attribute '%s' is not allowed.", n.name, a.Name.Local, a.Name.Local)
			continue
		}
		seen[decl.name] = true
		if vio := decl.typ.check(a.Value); vio != nil {
			rp.add(vio.code, n.line, "Element '%s', attribute '%s': %s", n.name, a.Name.Local, vio.msg)
			continue
		}
		if decl.fixed != nil && decl.typ.normalize(a.Value) != *decl.fixed {
			rp.add(CodeFixedValue, n.line, "Element '%s', attribute '%s': The value '%s' does not match the fixed value constraint '%s'.", n.name, a.Name.Local, a.Value, *decl.fixed)
		}
	}
	for _, d := range decls {
		if d.required && !seen[d.name] {
			rp.add(CodeAttrRequired, n.line, "Element '%s': The attribute '%s' is required but missing.", n.name, d.name)
		}
	}
}

// matcher walks the children of one element against a content model.
// Matching is greedy, which is sufficient for deterministic content models.
type matcher struct {
	kids   []*node
	assign []*elementDecl
}

func validateContent(rp *reporter, content *particle, n *node) {
	if content == nil {
		if len(n.children) > 0 {
			rp.add(CodeContentModel, n.children[0].line, "Element '%s': This element is not expected.", n.children[0].name)
		}
		return
	}

	m := &matcher{kids: n.children, assign: make([]*elementDecl, len(n.children))}
	end, ok := m.match(content, 0)

	limit := end
	if !ok {
		limit = len(n.children)
	}
	for i := 0; i < limit; i++ {
		if d := m.assign[i]; d != nil && d.name == n.children[i].name {
			validateElement(rp, d, n.children[i])
		}
	}

	switch {
	case !ok:
		missing := missingElements(content, n.children)
		rp.add(CodeContentModel, n.line, "Element '%s': Missing child element(s). Expected is %s.", n.name, expectedList(missing))
	case end < len(n.children):
		kid := n.children[end]
		rp.add(CodeContentModel, kid.line, "Element '%s': This element is not expected. Expected is %s.", kid.name, expectedList(elementNames(content)))
	}
}

// match applies p as often as its occurrence constraints allow.
func (m *matcher) match(p *particle, i int) (int, bool) {
	count := 0
	for p.max == unbounded || count < p.max {
		j, ok := m.matchOnce(p, i)
		if !ok {
			break
		}
		if j == i {
			// An emptiable group satisfies any remaining minimum.
			return i, true
		}
		i = j
		count++
	}
	return i, count >= p.min
}

func (m *matcher) matchOnce(p *particle, i int) (int, bool) {
	switch p.kind {
	case particleElement:
		if i < len(m.kids) && m.kids[i].name == p.elem.name {
			m.assign[i] = p.elem
			return i + 1, true
		}
		return i, false

	case particleSequence:
		start := i
		for _, c := range p.children {
			j, ok := m.match(c, i)
			if !ok {
				return start, false
			}
			i = j
		}
		return i, true

	case particleChoice:
		emptiable := false
		for _, c := range p.children {
			j, ok := m.match(c, i)
			if ok && j > i {
				return j, true
			}
			if ok {
				emptiable = true
			}
		}
		return i, emptiable

	case particleAll:
		used := make([]bool, len(p.children))
		for i < len(m.kids) {
			progressed := false
			for k, c := range p.children {
				if used[k] {
					continue
				}
				if j, ok := m.matchOnce(c, i); ok && j > i {
					used[k] = true
					i = j
					progressed = true
					break
				}
			}
			if !progressed {
				break
			}
		}
		for k, c := range p.children {
			if !used[k] && c.min > 0 {
				return i, false
			}
		}
		return i, true
	}
	return i, false
}

// missingElements lists required element names from the content model that
// do not occur among the children.
func missingElements(p *particle, kids []*node) []string {
	present := make(map[string]bool, len(kids))
	for _, k := range kids {
		present[k.name] = true
	}
	var out []string
	var walk func(p *particle, required bool)
	walk = func(p *particle, required bool) {
		required = required && p.min > 0
		switch p.kind {
		case particleElement:
			if required && !present[p.elem.name] {
				out = append(out, p.elem.name)
			}
		case particleChoice:
			for _, c := range p.children {
				walk(c, false)
			}
			if required && len(out) == 0 {
				out = append(out, elementNames(p)...)
			}
		default:
			for _, c := range p.children {
				walk(c, required)
			}
		}
	}
	walk(p, true)
	if len(out) == 0 {
		out = elementNames(p)
	}
	return out
}

func elementNames(p *particle) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(p *particle)
	walk = func(p *particle) {
		if p.kind == particleElement {
			if !seen[p.elem.name] {
				seen[p.elem.name] = true
				out = append(out, p.elem.name)
			}
			return
		}
		for _, c := range p.children {
			walk(c)
		}
	}
	walk(p)
	return out
}

func expectedList(names []string) string {
	if len(names) == 1 {
		return fmt.Sprintf("( %s )", names[0])
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return fmt.Sprintf("one of ( %s )", strings.Join(sorted, ", "))
}
