// Package worker runs the classification loop: it claims pending work
// items, fetches their image payloads, calls the classifier, and commits
// results or failures back to the queue.
//
// Multiple workers may run against the same store, in one process or
// several. Coordination happens entirely through the store's claim
// protocol; workers never talk to each other.
package worker
