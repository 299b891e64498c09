// Package testutil provides testing utilities for the index.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe random source for generating
// deterministic workloads.
package testutil
