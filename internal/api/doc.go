// Package api defines the transport DTOs shared by the daemon's HTTP
// surface and the CLI, plus the read-only query services behind them.
package api
