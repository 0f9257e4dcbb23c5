// Package schema holds the model metadata that query paths resolve against:
// models, their fields and the relationships between them, scoped per
// repository.
//
// A Registry is the schema provider. It is populated once (usually by the
// compiler package from CUE or YAML definitions) and then read by any
// number of goroutines building paths. Every set handed out by the
// registry is an immutable snapshot; registration replaces sets rather
// than mutating them, so readers never observe a half-registered model.
//
// Names are NFC-normalized on the way in and on lookup, so a path segment
// typed with decomposed accents still finds its field.
package schema
