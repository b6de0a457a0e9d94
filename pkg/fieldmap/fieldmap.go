// Package fieldmap builds the bidirectional file-name↔expected-name
// translation driven by Iceberg field id.
package fieldmap

import "github.com/arrowarc/icereader/pkg/iceberg"

// FieldMap holds the two finite, id-driven name translations. Built once
// at reader construction and immutable thereafter — safe to share across
// worker goroutines.
type FieldMap struct {
	FileToExpected map[string]string
	ExpectedToFile map[string]string
}

// New constructs a FieldMap from the file-side and expected schemas. For
// every expected top-level field whose id exists in the file schema, it
// records both direction entries. Fields present in the file but absent
// from the expected schema are ignored — this is a pure projection, not
// a full schema diff.
func New(fileSchema, expectedSchema *iceberg.Schema) *FieldMap {
	fm := &FieldMap{
		FileToExpected: make(map[string]string, len(expectedSchema.Fields)),
		ExpectedToFile: make(map[string]string, len(expectedSchema.Fields)),
	}
	for _, expected := range expectedSchema.Fields {
		if fileField, ok := fileSchema.TopLevelByID(expected.ID); ok {
			fm.FileToExpected[fileField.Name] = expected.Name
			fm.ExpectedToFile[expected.Name] = fileField.Name
		}
	}
	return fm
}

// Identity reports whether every mapped entry keeps the same name on
// both sides, i.e. whether schema reconciliation's rename pass would be
// a no-op.
func (fm *FieldMap) Identity() bool {
	for file, expected := range fm.FileToExpected {
		if file != expected {
			return false
		}
	}
	return true
}
