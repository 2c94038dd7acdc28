// Package security enforces the read-only execution contract and the
// sensitive-field boundary of the query pipeline.
//
// Three layers of defense:
//
//  1. ValidateSQL rejects any statement containing mutating,
//     administrative or injection-prone constructs before execution.
//  2. FilterForbiddenFields strips configured sensitive column names
//     from the projection of an already-validated statement.
//  3. FilterRows drops those same columns from result rows after
//     execution, catching anything the text-level filter missed.
//
// The query-time and row-time filters overlap on purpose. A bypass of
// the text filter (aliases, expressions, SELECT *) must not leak
// through execution.
//
// The package also detects and strips leaked system-prompt markers from
// incoming questions so instruction text never enters generation or
// conversational memory.
package security
