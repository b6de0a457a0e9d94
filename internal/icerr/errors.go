// Package icerr defines the reader's sentinel error kinds. Callers match
// with errors.Is; plain I/O failures need no sentinel here since callers
// already receive them wrapped from the standard library / arrow.
package icerr

import "errors"

var (
	// ErrUnsupportedFillType: a missing expected field has a logical
	// type with no defined null-fill (MAP). Fatal for the file being
	// read.
	ErrUnsupportedFillType = errors.New("icereader: no null-fill defined for this logical type")

	// ErrNestedColumnPredicate: a bound predicate references a column
	// that does not resolve to a top-level struct field. Fatal for the
	// row-group evaluator — the caller must not push such a predicate
	// down.
	ErrNestedColumnPredicate = errors.New("icereader: predicate references a non-top-level column")

	// ErrSchemaIDMismatch: an expected field id could not be resolved
	// against the expected schema during reconciliation.
	ErrSchemaIDMismatch = errors.New("icereader: field id not resolvable in expected schema")
)
