// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

// Package bluem is the client facade for the provider transaction API.
//
// A Client builds requests for the configured integration, validates them
// against the bundled interface schemas, posts them to the provider and
// classifies the reply. Every request moves through the same states:
//
//	Built -> Validated -> Sent -> Classified
//
// A request that fails schema validation is never sent and yields a
// *response.Error of kind validation. Transport failures and provider
// errors are likewise reported as *response.Error values, so the only
// error a caller receives from Perform is a *ConfigurationError.
//
// Basic usage:
//
//	cfg, err := config.LoadFile("bluem.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := bluem.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := client.Mandate(ctx, "customer-42", "order-9", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !res.Status() {
//	    log.Println(res.ErrorMessage())
//	}
package bluem
