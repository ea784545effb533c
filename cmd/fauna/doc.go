// Package main hosts the fauna CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon API, queue maintenance operations, and
// configuration scaffolding. When no daemon is reachable the queue
// commands fall back to opening the store directly, so inspection and
// cleanup work even while the daemon is down.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags
// here.
package main
