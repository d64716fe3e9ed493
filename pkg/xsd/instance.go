package xsd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const maxDepth = 64

// node is an instance element with the line it started on.
type node struct {
	name     string
	line     int
	attrs    []xml.Attr
	text     strings.Builder
	children []*node
}

func (n *node) hasText() bool {
	return strings.TrimSpace(n.text.String()) != ""
}

// parseInstance reads doc into a node tree. Syntax errors are reported to rp
// and yield a nil root.
func parseInstance(doc []byte, rp *reporter) *node {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true

	var (
		root  *node
		stack []*node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		line, _ := dec.InputPos()
		if err != nil {
			var syn *xml.SyntaxError
			code := CodeSyntax
			if errors.As(err, &syn) {
				line = syn.Line
				if strings.Contains(syn.Msg, "closed by") || strings.Contains(syn.Msg, "unexpected end element") {
					code = CodeTagNameMismatch
				}
				rp.add(code, line, "%s", syn.Msg)
			} else {
				rp.add(code, line, "%s", err.Error())
			}
			return nil
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, line: line, attrs: t.Attr}
			switch {
			case len(stack) > 0:
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			case root != nil:
				rp.add(CodeDocumentEnd, line, "Extra content at the end of the document")
				return nil
			default:
				root = n
			}
			stack = append(stack, n)
			if len(stack) > maxDepth {
				rp.add(CodeSyntax, line, "Excessive depth in document: %d", len(stack))
				return nil
			}
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				if root == nil {
					rp.add(CodeDocumentEmpty, line, "Start tag expected, '<' not found")
				} else {
					rp.add(CodeDocumentEnd, line, "Extra content at the end of the document")
				}
				return nil
			}
		}
	}

	if root == nil {
		rp.add(CodeDocumentEmpty, 1, "Document is empty")
		return nil
	}
	return root
}
