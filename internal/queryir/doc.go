// Package queryir compiles query paths and operators into a query
// intermediate representation.
//
// queryir is the consumer of the query package: callers describe what
// they want with paths and operators, and queryir turns that into a
// Query that names every relationship chain that has to be joined, every
// comparison grouped under the chain it filters, and the sort order.
//
// ARCHITECTURE:
//
//	[query.Path / query.Operator] → Compile → [Query] → Validate
//	                                                  → Match / Sort (in memory)
//	                                                  → Fingerprint
//
// IMPLICIT OPERATORS:
//
// The eql and in operators cannot be requested through the path API.
// A Condition built with Where leaves the operator open, and Compile
// picks it from the value's shape:
//
//	Where(title, ir.String("Dune"))                  → eql
//	Where(title, ir.Array{ir.String("Dune"), ...})   → in
//
// An explicit Condition carrying eql or in is rejected the same way the
// path API rejects it.
//
// LINKS:
//
// Every condition and order entry lives on a canonical path: the
// relationship chain without the field. Query.Links lists the distinct
// non-empty canonical paths in the order they were first referenced, and
// ConditionsFor returns the comparisons grouped under one of them. A
// storage adapter joins one link at a time.
//
// VALUES:
//
// All compared values are ir.Value (no floats). Equal queries have equal
// fingerprints, so a Query can key a prepared-statement cache.
package queryir
