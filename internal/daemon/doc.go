// Package daemon coordinates the long-running fauna process.
//
// It wires configuration, queue storage, the intake service, and the worker
// manager into a single lifecycle with flock-based locking to prevent
// multiple instances, and serves the HTTP API clients poll. Keep
// orchestration logic here: claim handling and classification live in the
// worker package while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
