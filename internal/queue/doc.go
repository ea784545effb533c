// Package queue persists classification work items in SQLite and exposes
// the atomic claim and commit operations workers coordinate through.
//
// The Store manages database connections, schema initialization, stats
// queries, claim transitions, and the stale-claim recovery sweep. The
// database is the only synchronization point between the upload path, the
// worker pool, and the status query surface: every claim-sensitive write
// is a single conditional UPDATE so concurrent workers resolve to exactly
// one winner.
//
// The database is treated as transient storage for in-flight work rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
