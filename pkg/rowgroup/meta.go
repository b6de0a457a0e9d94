// Package rowgroup implements the row-group-level predicate evaluator
// and statistics decoder — the core of this reader.
//
// Meta/ColumnMeta/Statistics are a deliberately minimal, pure value-type
// mirror of the real Parquet row-group metadata (as exposed by
// github.com/apache/arrow/go/v17/parquet/file's RowGroupMetaData /
// ColumnChunkMetaData / Statistics). Keeping the evaluator's input a
// plain value type — rather than the arrow-parquet types directly —
// keeps this package pure, independently testable, and safe to call
// concurrently from worker goroutines. The driver (pkg/icereader) is
// responsible for adapting a real *file.Reader into these types.
package rowgroup

// Statistics is the per-column (min, max, null_count) triple read off a
// row group's column chunk metadata. Each field is independently
// present/absent, matching Parquet's own optionality.
type Statistics struct {
	HasMin bool
	Min    any

	HasMax bool
	Max    any

	HasNullCount bool
	NullCount    int64
}

// ColumnMeta is one column chunk's metadata within a row group.
type ColumnMeta struct {
	PathInSchema        string
	FileOffset          int64
	TotalCompressedSize int64
	Statistics          *Statistics // nil if the column carries no statistics
}

// Meta is the row-group-level metadata handle: num_rows plus per-column
// chunk metadata.
type Meta struct {
	NumRows int64
	Columns []ColumnMeta
}
