package xsd

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var builtinPatterns = map[string]*regexp.Regexp{
	"decimal":            regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`),
	"integer":            regexp.MustCompile(`^[+-]?\d+$`),
	"int":                regexp.MustCompile(`^[+-]?\d{1,10}$`),
	"nonNegativeInteger": regexp.MustCompile(`^\+?\d+$`),
	"positiveInteger":    regexp.MustCompile(`^\+?0*[1-9]\d*$`),
	"boolean":            regexp.MustCompile(`^(true|false|1|0)$`),
	"date":               regexp.MustCompile(`^-?\d{4,}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])(Z|[+-]\d{2}:\d{2})?$`),
	"dateTime":           regexp.MustCompile(`^-?\d{4,}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])T([01]\d|2[0-3]):[0-5]\d:[0-5]\d(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`),
}

var builtinNames = map[string]bool{
	"string":             true,
	"normalizedString":   true,
	"token":              true,
	"anyURI":             true,
	"anyType":            true,
	"anySimpleType":      true,
	"decimal":            true,
	"integer":            true,
	"int":                true,
	"nonNegativeInteger": true,
	"positiveInteger":    true,
	"boolean":            true,
	"date":               true,
	"dateTime":           true,
}

func isBuiltin(name string) bool { return builtinNames[name] }

func builtinType(name string) *simpleType {
	if name == "anyType" || name == "anySimpleType" {
		name = "string"
	}
	return &simpleType{
		name:           "xs:" + name,
		builtin:        name,
		length:         -1,
		minLength:      -1,
		maxLength:      -1,
		totalDigits:    -1,
		fractionDigits: -1,
	}
}

func (st *simpleType) numeric() bool {
	switch st.builtin {
	case "decimal", "integer", "int", "nonNegativeInteger", "positiveInteger":
		return true
	}
	return false
}

// normalize applies the whiteSpace facet of the type's primitive.
func (st *simpleType) normalize(v string) string {
	switch st.builtin {
	case "string":
		return v
	case "normalizedString":
		return strings.Map(func(r rune) rune {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}, v)
	default:
		return strings.Join(strings.Fields(v), " ")
	}
}

// violation is a failed facet or datatype check.
type violation struct {
	code int
	msg  string
}

// check validates a lexical value against the type and all of its bases.
func (st *simpleType) check(raw string) *violation {
	v := st.normalize(raw)

	chain := []*simpleType{}
	for t := st; t != nil; t = t.base {
		chain = append(chain, t)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if vio := chain[i].checkFacets(v); vio != nil {
			return vio
		}
	}
	return nil
}

func (st *simpleType) checkFacets(v string) *violation {
	if st.base == nil {
		return st.checkBuiltin(v)
	}

	if len(st.enums) > 0 {
		found := false
		for _, e := range st.enums {
			if e == v {
				found = true
				break
			}
		}
		if !found {
			return &violation{CodeEnumeration, fmt.Sprintf("[facet 'enumeration'] The value '%s' is not an element of the set {'%s'}.", v, strings.Join(st.enums, "', '"))}
		}
	}
	for _, re := range st.patterns {
		if !re.MatchString(v) {
			pattern := strings.TrimSuffix(strings.TrimPrefix(re.String(), "^(?:"), ")$")
			return &violation{CodePattern, fmt.Sprintf("[facet 'pattern'] The value '%s' is not accepted by the pattern '%s'.", v, pattern)}
		}
	}

	n := utf8.RuneCountInString(v)
	if st.length >= 0 && n != st.length {
		return &violation{CodeLength, fmt.Sprintf("[facet 'length'] The value '%s' has a length of '%d'; this differs from the allowed length of '%d'.", v, n, st.length)}
	}
	if st.minLength >= 0 && n < st.minLength {
		return &violation{CodeMinLength, fmt.Sprintf("[facet 'minLength'] The value '%s' has a length of '%d'; this underruns the allowed minimum length of '%d'.", v, n, st.minLength)}
	}
	if st.maxLength >= 0 && n > st.maxLength {
		return &violation{CodeMaxLength, fmt.Sprintf("[facet 'maxLength'] The value '%s' has a length of '%d'; this exceeds the allowed maximum length of '%d'.", v, n, st.maxLength)}
	}

	if st.numeric() {
		return st.checkNumericFacets(v)
	}
	return nil
}

func (st *simpleType) checkNumericFacets(v string) *violation {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return &violation{CodeDatatype, fmt.Sprintf("'%s' is not a valid value of the atomic type '%s'.", v, st.name)}
	}
	if st.fractionDigits >= 0 && -d.Exponent() > int32(st.fractionDigits) && !d.Equal(d.Truncate(int32(st.fractionDigits))) {
		return &violation{CodeFractionDigits, fmt.Sprintf("[facet 'fractionDigits'] The value '%s' has more fractional digits than are allowed ('%d').", v, st.fractionDigits)}
	}
	if st.totalDigits >= 0 {
		digits := strings.TrimLeft(strings.NewReplacer("-", "", "+", "", ".", "").Replace(d.String()), "0")
		if len(digits) > st.totalDigits {
			return &violation{CodeTotalDigits, fmt.Sprintf("[facet 'totalDigits'] The value '%s' has more digits than are allowed ('%d').", v, st.totalDigits)}
		}
	}
	if st.minInclusive != nil && d.LessThan(*st.minInclusive) {
		return &violation{CodeMinInclusive, fmt.Sprintf("[facet 'minInclusive'] The value '%s' is less than the minimum value allowed ('%s').", v, st.minInclusive)}
	}
	if st.maxInclusive != nil && d.GreaterThan(*st.maxInclusive) {
		return &violation{CodeMaxInclusive, fmt.Sprintf("[facet 'maxInclusive'] The value '%s' is greater than the maximum value allowed ('%s').", v, st.maxInclusive)}
	}
	if st.minExclusive != nil && d.LessThanOrEqual(*st.minExclusive) {
		return &violation{CodeMinExclusive, fmt.Sprintf("[facet 'minExclusive'] The value '%s' must be greater than '%s'.", v, st.minExclusive)}
	}
	return nil
}

func (st *simpleType) checkBuiltin(v string) *violation {
	invalid := &violation{CodeDatatype, fmt.Sprintf("'%s' is not a valid value of the atomic type '%s'.", v, st.name)}
	if re, ok := builtinPatterns[st.builtin]; ok && !re.MatchString(v) {
		return invalid
	}
	switch st.builtin {
	case "anyURI":
		if _, err := url.Parse(v); err != nil {
			return invalid
		}
	case "int":
		d, _ := decimal.NewFromString(v)
		if d.GreaterThan(decimal.NewFromInt(2147483647)) || d.LessThan(decimal.NewFromInt(-2147483648)) {
			return invalid
		}
	}
	return nil
}
