// Package stabilize rewrites a catalog so that every token points into a
// generated forwarding package instead of at the original declarations.
//
// For each original named type reached from the catalog the generated
// package holds:
//   - a type alias carrying the original's type parameters and constraints
//   - an empty forwarders type with the same type parameters, whose methods
//     forward to the original factories, methods and field accessors
//
// Unexported non-generic functions and methods are reached through
// //go:linkname declarations. Such packages must be linked with
// -ldflags=-checklinkname=0. Unexported fields are reached through reflect
// and unsafe.
//
// A Builder owns one stabilization pass and is not safe for concurrent use.
package stabilize
