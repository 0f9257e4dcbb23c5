// Package query implements query paths: immutable references that start
// at a model, traverse zero or more relationships, and optionally land on
// a field.
//
// A Path is built from an Empty Path (rooted directly on a model) or from
// an explicit relationship chain, and grows one segment at a time:
//
//	root := query.NewEmptyPath(registry, author)
//	city, err := query.Walk(root, "books.publisher.address.city")
//
// Every segment is resolved against the schema of the path's current
// target model, in the path's repository, at the moment it is added.
// Names resolve as relationships first and fields second.
//
// A terminal path (one that ends on a field) also behaves as that field:
// AsField returns a FieldLike view whose answers are the field's own, so
// query compilation can treat a bare field and a path wrapping one alike.
//
// Operators pair a subject with a comparison or ordering slug. The eql
// and in slugs cannot be requested explicitly; the query compiler picks
// them from the shape of the compared value.
//
// Paths and Operators never change after construction and may be shared
// freely between goroutines.
package query
