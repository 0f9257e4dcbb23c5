// Package store reads model definitions out of an existing SQLite
// database.
//
// Introspection turns every user table into a schema.ModelDef:
//   - Columns become fields; the declared column type picks the kind
//   - A single INTEGER PRIMARY KEY becomes a serial key
//   - Foreign keys become a many_to_one relationship on the referencing
//     model and a one_to_many relationship back from the referenced one
//
// Columns with no integer-safe kind (REAL, FLOAT, BLOB, ...) are skipped
// and reported, never approximated.
//
// # Database Configuration
//
//   - mode=ro: The store never writes
//   - query_only=ON: Reject writes even through DB()
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Output is deterministic: tables are read in name order, columns in
// declaration order and foreign keys by column.
package store
