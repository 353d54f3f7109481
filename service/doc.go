// Package service provides the base every service in the substrate is built
// on: a named, prioritized owner of worker pools with fork/call primitives,
// lazily registered auxiliary pools, lifecycle hooks, and the consumer
// registration contract concrete services implement.
package service
