// Package store runs compiled cohort statements against a warehouse.
//
// Two runners are provided:
//   - SQLite: the search tables in a local SQLite database. Used for
//     fixture warehouses in tests, the scenario harness and the seed command.
//   - Postgres: a pgx connection pool against a production warehouse.
//
// Both implement Runner. Statements carry their own dialect; a runner only
// accepts statements rendered for its Dialect().
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Fixtures are plain YAML (see Fixtures) and are loaded with Seed inside a
// single transaction.
package store
