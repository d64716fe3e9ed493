// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package response turns provider replies into typed results.

Every exchange ends in exactly one Response: a success variant selected by the
transaction code of the request, or an *Error. Classify applies the HTTP
status rules and inspects the reply document:

	res, err := response.Classify(registry.PaymentTransactionTest, resp.StatusCode, resp.Body)
	if err != nil {
	    // unknown transaction code
	}
	switch r := res.(type) {
	case *response.PaymentTransaction:
	    redirect(r.TransactionURL())
	case *response.Error:
	    log.Printf("%s failure: %s", r.Kind, r.Message)
	}

# Status

A success variant whose family error node is present reports Status() false.
Classify never returns such a variant; it converts it into an *Error carrying
the provider message. Variants parsed directly from notifications with Parse
may still report false.
*/
package response
