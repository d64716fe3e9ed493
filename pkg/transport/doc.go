// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport carries provider requests over HTTPS and hosts the
notification endpoint.

# Client

The client posts a request body with caller supplied headers and hands back
the status code and body as received. A non-200 status is not an error at
this layer; classifying it is left to the caller.

	client := transport.NewClient(transport.DefaultConfig())
	resp, err := client.Send(ctx, "https://test.viamijnbank.net/pr/PTS?token=...", body, header)

An error from Send means no response was obtained at all: DNS, connect, TLS,
timeout or cancellation.

# TLS

Connections use TLS 1.2 or 1.3. For TLS 1.2 only ECDHE suites with AES-GCM
are offered:
  - TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
  - TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256

# Server

Server wraps an http.Handler with the same TLS settings and timeouts. Without
certificates it listens on plain HTTP, which is meant for running behind a
terminating proxy.

	srv := transport.NewServer(":8080", handler, nil)
	go srv.Start()
	defer srv.Shutdown(ctx)
*/
package transport
