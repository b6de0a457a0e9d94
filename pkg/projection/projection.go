// Package projection computes which file-side columns a read must
// materialize: the intersection of the expected schema's fields and the
// file schema's fields, in expected-schema order.
package projection

import "github.com/arrowarc/icereader/pkg/iceberg"

// Plan returns the ordered file-side column names (dotted paths for
// nested struct fields) that must be read to satisfy expectedSchema
// against fileSchema. List/map element projection reads the whole
// element, so only the top container path is included for those.
func Plan(fileSchema, expectedSchema *iceberg.Schema) []string {
	var cols []string
	for _, expected := range expectedSchema.Fields {
		fileField, ok := fileSchema.TopLevelByID(expected.ID)
		if !ok {
			continue
		}
		cols = append(cols, planField(fileField)...)
	}
	return cols
}

// planField expands a single projected top-level field into the set of
// leaf/column paths a Parquet reader needs, preserving nested struct
// paths and reading list/map elements whole.
func planField(f *iceberg.Field) []string {
	if f.Type.ID != iceberg.Struct {
		return []string{f.Name}
	}
	var paths []string
	for i := range f.Type.Fields {
		child := &f.Type.Fields[i]
		for _, sub := range planField(child) {
			paths = append(paths, f.Name+"."+sub)
		}
	}
	if len(paths) == 0 {
		// Struct declared with no fields: still project the container.
		return []string{f.Name}
	}
	return paths
}
