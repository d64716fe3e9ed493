// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package config turns loosely typed integration settings into a validated,
immutable [Config].

The input side is [Input], a plain struct that can be filled from YAML, the
environment or code. [Build] either returns a complete *Config or a
[ValidationErrors] list naming every field that failed; a partially
validated configuration is never returned.

# Rules

  - environment must be test, acc or prod
  - senderID is "S" followed by letters and digits
  - brandID is required
  - test requires test_accessToken, prod and acc require production_accessToken
  - localInstrumentCode falls back to CORE unless it is CORE or B2B
  - expectedReturnStatus is only kept in test; unknown values become "success"
  - the merchant ID is forced to the provider's static test merchant in test

# Loading from YAML

	cfg, err := config.LoadFile("bluem.yaml")

Values of the form ${VAR} are expanded from the process environment before
parsing, so access tokens do not need to live in the file.
*/
package config
