// Package criteria defines the cohort search request model: the criteria
// tree a researcher authors and the compiler lowers to SQL.
//
// A SearchRequest holds include groups (AND-combined) and exclude groups
// (subtracted). Each SearchGroup holds items (OR-combined), or, when
// temporal, two partitions of items related by a time constraint. Each
// SearchGroupItem holds search parameters (OR-combined) and modifiers
// (AND-combined onto every parameter's match set).
//
// All types are plain values. They are built once per request (usually by
// decoding JSON, YAML or CUE) and never mutated during compilation.
//
// Enumerations are string types whose constants match the wire names used
// by the REST payloads, so requests decode without custom unmarshalers.
// Unknown values decode fine and are rejected by compiler validation.
package criteria
