// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package xsd validates XML documents against W3C XML Schema definitions.

Only the subset of XML Schema used by the provider interfaces is
implemented: global and local element declarations, named and anonymous
complex types with sequence, choice and all groups, occurrence constraints,
attribute declarations, simple content extensions and simple type
restrictions with the common facets (enumeration, length, pattern, digits
and inclusive/exclusive bounds).

# Usage

	v := xsd.NewValidator(xsd.Bundled())
	res, err := v.Validate("EPayment.xsd", "payment request", doc)
	if err != nil {
	    // schema missing or unusable
	}
	if !res.Valid() {
	    for _, d := range res.Errors {
	        fmt.Println(d) // "1871 in payment request (line 7): Element 'Foo': ..."
	    }
	}

Malformed input never produces an error return; parser failures are
reported as diagnostics in the result like any schema violation.

Parsed schemas are cached by the Validator and are immutable, so a single
Validator can be shared between goroutines.
*/
package xsd
