// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package storetest starts throwaway databases for integration tests.
// Its helpers build only with the integration tag.
package storetest
