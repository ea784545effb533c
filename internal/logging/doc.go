// Package logging builds slog loggers for the daemon and CLI.
//
// It provides a console handler for interactive use, a JSON handler for
// machine consumption, attribute helper functions, and the shared field
// names the worker and API layers log with.
package logging
