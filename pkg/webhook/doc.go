// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package webhook verifies signed status notifications pushed by the provider.

The provider posts a signed status update document to a URL registered by the
merchant. Verification follows a fixed order:

 1. only POST is accepted
 2. an empty body is a liveness probe and is acknowledged without payload
 3. the body must be well-formed XML
 4. the enveloped signature must verify against a trusted certificate
 5. the signed content must be a supported status update

Supported updates are payment (EPaymentInterface/PaymentStatusUpdate), mandate
(EMandateInterface/EMandateStatusUpdate) and identity
(IdentityInterface/IdentityStatusUpdate) updates.

Trusted certificates come from a KeySource selected by environment:

	keys := webhook.NewStaticKeys(prodCert).With(config.Test, testCert)
	v := webhook.NewVerifier(keys, cfg.Environment())
	n, err := v.Verify(r.Method, body)

Handler wraps a Verifier as an http.Handler that answers 400 on any rejection
and hands accepted notifications to a Sink. A failing sink yields 500 so the
provider delivers again; with a reliability.DuplicateTracker configured, a
redelivery of an update the sink already took is acknowledged and dropped.
*/
package webhook
