// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

// Package registry holds the transaction families, their schema contexts and
// the closed set of transaction codes exchanged with the provider.
package registry
