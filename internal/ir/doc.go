// Package ir provides the constrained value types that query conditions
// compare against, and their canonical JSON encoding.
//
// This package depends on nothing internal. schema, query and queryir all
// import it, which keeps it the foundational layer.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Arrays are the only enumerable value; the query compiler uses that
//     shape to pick between an implicit equality and an inclusion test
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only
//     encoding used for fingerprints
package ir
