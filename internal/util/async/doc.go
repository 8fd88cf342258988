// Package async provides utilities for parallel task execution.
//
// [RunParallel] runs independent operations concurrently and reports the
// first failure; [All] evaluates a predicate over a set of items
// concurrently and stops early once one of them does not hold.
package async
