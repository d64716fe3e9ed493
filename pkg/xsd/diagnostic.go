package xsd

import (
	"fmt"
	"strings"
)

// Diagnostic codes follow libxml2's numbering so messages can be compared
// with the output of xmllint.
const (
	CodeDocumentEmpty     = 4
	CodeDocumentEnd       = 5
	CodeSyntax            = 73
	CodeTagNameMismatch   = 76
	CodeDatatype          = 1824
	CodeMinLength         = 1830
	CodeMaxLength         = 1831
	CodeLength            = 1832
	CodeMinInclusive      = 1833
	CodeMaxInclusive      = 1834
	CodeMinExclusive      = 1835
	CodeTotalDigits       = 1837
	CodeFractionDigits    = 1838
	CodePattern           = 1839
	CodeEnumeration       = 1840
	CodeElementOnly       = 1841
	CodeNoGlobalDecl      = 1845
	CodeSimpleTypeContent = 1858
	CodeAttrNotAllowed    = 1866
	CodeAttrRequired      = 1868
	CodeContentModel      = 1871
	CodeFixedValue        = 1879
)

// Diagnostic is a single validation or parse failure.
type Diagnostic struct {
	Code    int
	Source  string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d in %s (line %d): %s", d.Code, d.Source, d.Line, d.Message)
}

// Result collects the diagnostics of one validation run in document order.
type Result struct {
	Errors []Diagnostic
}

// Valid reports whether the document passed validation.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

// Messages renders every diagnostic.
func (r *Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, d := range r.Errors {
		out[i] = d.String()
	}
	return out
}

func (r *Result) String() string {
	return strings.Join(r.Messages(), "; \n")
}

type reporter struct {
	source string
	res    *Result
}

func (rp *reporter) add(code, line int, format string, args ...any) {
	rp.res.Errors = append(rp.res.Errors, Diagnostic{
		Code:    code,
		Source:  rp.source,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}
