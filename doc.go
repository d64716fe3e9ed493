// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package gobluem is a client for the Bluem / viamijnbank transaction API.

# Overview

go-bluem builds the XML requests for e-mandates, payments, identity (IDIN)
transactions and IBAN name checks, validates them against the provider
interface schemas before anything leaves the process, posts them with the
provider's transport headers and classifies the reply into a typed response
or a descriptive error. Status updates pushed by the provider are checked
against its XML signature before they are handed to the application.

# Package Structure

The library is organized into the following packages:

	github.com/sirosfoundation/go-bluem/pkg/bluem       - Client facade and request dispatch
	github.com/sirosfoundation/go-bluem/pkg/config      - Validated integration configuration
	github.com/sirosfoundation/go-bluem/pkg/registry    - Transaction families, codes and banks
	github.com/sirosfoundation/go-bluem/pkg/request     - Request builders and identifiers
	github.com/sirosfoundation/go-bluem/pkg/xsd         - Schema validation with line diagnostics
	github.com/sirosfoundation/go-bluem/pkg/transport   - HTTPS transport with TLS 1.2/1.3
	github.com/sirosfoundation/go-bluem/pkg/response    - Response classification and variants
	github.com/sirosfoundation/go-bluem/pkg/security    - XML signature creation and verification
	github.com/sirosfoundation/go-bluem/pkg/webhook     - Notification verification and handler
	github.com/sirosfoundation/go-bluem/pkg/reliability - Duplicate detection and status polling

# Quick Start

To start a payment:

	import (
	    "github.com/sirosfoundation/go-bluem/pkg/bluem"
	    "github.com/sirosfoundation/go-bluem/pkg/config"
	    "github.com/sirosfoundation/go-bluem/pkg/request"
	)

	cfg, err := config.Build(config.Input{
	    Environment:     "test",
	    SenderID:        "S1234",
	    BrandID:         "ExampleBrand",
	    TestAccessToken: os.Getenv("BLUEM_TEST_TOKEN"),
	})
	client, err := bluem.New(cfg)

	res, err := client.Payment(ctx, request.PaymentParams{
	    Description:     "Order 9",
	    DebtorReference: "1001",
	    Amount:          decimal.RequireFromString("12.50"),
	})
	if tx, ok := res.(*response.PaymentTransaction); ok {
	    redirect(tx.TransactionURL())
	}

# Notifications

Mount a webhook.Handler on the URL registered with the provider. It answers
400 for anything but a correctly signed POST, 200 for an empty liveness
probe, and passes verified updates to a Sink. Set HandlerConfig.Duplicates
to acknowledge repeated deliveries without processing them twice.

The bluem command (cmd/bluem) wraps the client for the shell and runs the
webhook server, optionally keeping a MongoDB history of received updates.

# License

BSD-2-Clause License
*/
package gobluem
