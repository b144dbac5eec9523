// Package queryir is the fragment AST the cohort compiler lowers a criteria
// tree into before any SQL text exists.
//
// The compiler never concatenates SQL strings. Every fragment (a base
// criteria query, a modifier wrapper, a ranked temporal partition, the outer
// count) is a tree of the node types below, and package querysql renders the
// whole tree in one recursive pass with a fresh parameter store.
//
// # Sealed interfaces
//
// Query, Source, Expr and Predicate are sealed with unexported marker
// methods on pointer receivers. Only *T values of this package satisfy
// them, so the renderer's type switches are exhaustive: a node added here
// and forgotten there fails loudly at render time instead of producing
// half-formed SQL.
//
// # Values
//
// Literal user input never appears in a tree as text. It is carried as a
// *Value (a typed constant) and becomes a named placeholder when rendered.
// *Literal holds only integer constants the compiler itself chooses
// (SELECT 1, rn = 1, has_ehr_data = 1).
//
// # Dialect-specific nodes
//
// Date arithmetic, age computation and hierarchy path matching differ
// between warehouses. They are dedicated nodes (*DateAddDays, *AgeYears,
// *PathContains) that each dialect renders its own way.
package queryir
