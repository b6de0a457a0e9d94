// Package reconcile renames file-labelled columns to expected names by
// field id, and null-fills expected fields absent from the file, on an
// arrow.Table.
package reconcile

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/arrowarc/icereader/internal/icerr"
	"github.com/arrowarc/icereader/pkg/fieldmap"
	"github.com/arrowarc/icereader/pkg/iceberg"
)

// MissingField names an expected field absent from the file schema,
// along with its position in the fully reconciled (expected-schema
// ordered) output table.
type MissingField struct {
	Index int
	Field iceberg.Field
}

// Reconcile runs the two-pass algorithm: rename (skipped when
// fm.Identity()), then null-fill. table must already be projected and
// column-ordered per the expected schema (pkg/projection), minus any
// missing fields.
func Reconcile(mem memory.Allocator, table arrow.Table, fm *fieldmap.FieldMap, missing []MissingField) (arrow.Table, error) {
	renamed := table
	if !fm.Identity() {
		renamed = renameColumns(table, fm)
	}
	if len(missing) == 0 {
		return renamed, nil
	}
	return fillMissing(mem, renamed, missing)
}

// renameColumns rewrites each column's field metadata to its expected
// name, preserving type, nullability and extra field metadata — it never
// touches the underlying chunked data.
func renameColumns(table arrow.Table, fm *fieldmap.FieldMap) arrow.Table {
	numCols := int(table.NumCols())
	fields := make([]arrow.Field, numCols)
	cols := make([]arrow.Column, numCols)

	for i := 0; i < numCols; i++ {
		col := table.Column(i)
		field := col.Field()
		if expectedName, ok := fm.FileToExpected[field.Name]; ok {
			field.Name = expectedName
		}
		fields[i] = field
		cols[i] = *arrow.NewColumn(field, col.Data())
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewTable(schema, columnPtrs(cols), table.NumRows())
}

func columnPtrs(cols []arrow.Column) []arrow.Column { return cols }

// fillMissing inserts a typed, fully-null chunked column for every
// missing expected field at its original expected-schema index,
// chunked to match an existing reference column so the table stays
// column-aligned.
func fillMissing(mem memory.Allocator, table arrow.Table, missing []MissingField) (arrow.Table, error) {
	missingByIndex := make(map[int]iceberg.Field, len(missing))
	for _, m := range missing {
		missingByIndex[m.Index] = m.Field
	}

	total := int(table.NumCols()) + len(missing)

	var chunkLens []int
	switch {
	case table.NumCols() > 0:
		chunkLens = chunkLengths(table.Column(0))
	case table.NumRows() > 0:
		chunkLens = []int{int(table.NumRows())}
	default:
		chunkLens = nil
	}

	fields := make([]arrow.Field, 0, total)
	cols := make([]arrow.Column, 0, total)
	present := 0

	for i := 0; i < total; i++ {
		if field, ok := missingByIndex[i]; ok {
			if field.Type.ID == iceberg.Map {
				return nil, fmt.Errorf("field %q (id %d): %w", field.Name, field.ID, icerr.ErrUnsupportedFillType)
			}
			chunked, dtype, err := buildNullColumn(mem, field.Type, chunkLens)
			if err != nil {
				return nil, fmt.Errorf("field %q (id %d): %w", field.Name, field.ID, err)
			}
			arrowField := arrow.Field{Name: field.Name, Type: dtype, Nullable: true}
			fields = append(fields, arrowField)
			cols = append(cols, *arrow.NewColumn(arrowField, chunked))
		} else {
			col := table.Column(present)
			present++
			fields = append(fields, col.Field())
			cols = append(cols, *col)
		}
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewTable(schema, cols, table.NumRows()), nil
}

func chunkLengths(col *arrow.Column) []int {
	chunks := col.Data().Chunks()
	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = c.Len()
	}
	return lens
}

// dtypeFor maps an Iceberg logical type to its physical Arrow type.
func dtypeFor(t iceberg.Type) (arrow.DataType, error) {
	switch t.ID {
	case iceberg.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case iceberg.Integer:
		return arrow.PrimitiveTypes.Int32, nil
	case iceberg.Long:
		return arrow.PrimitiveTypes.Int64, nil
	case iceberg.Float:
		return arrow.PrimitiveTypes.Float32, nil
	case iceberg.Double:
		return arrow.PrimitiveTypes.Float64, nil
	case iceberg.Date:
		return arrow.FixedWidthTypes.Date32, nil
	case iceberg.Timestamp:
		if t.WithTZ {
			return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
		}
		return &arrow.TimestampType{Unit: arrow.Microsecond}, nil
	case iceberg.String:
		return arrow.BinaryTypes.String, nil
	case iceberg.Binary:
		return arrow.BinaryTypes.Binary, nil
	case iceberg.Fixed:
		return &arrow.FixedSizeBinaryType{ByteWidth: t.Len}, nil
	case iceberg.Decimal:
		return &arrow.Decimal128Type{Precision: int32(t.Precision), Scale: int32(t.Scale)}, nil
	case iceberg.List:
		if t.Element == nil {
			return nil, fmt.Errorf("list type missing element field")
		}
		elemType, err := dtypeFor(t.Element.Type)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elemType), nil
	case iceberg.Struct:
		fields := make([]arrow.Field, len(t.Fields))
		for i, f := range t.Fields {
			dt, err := dtypeFor(f.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: !f.Required}
		}
		return arrow.StructOf(fields...), nil
	case iceberg.Map:
		return nil, icerr.ErrUnsupportedFillType
	default:
		return nil, fmt.Errorf("unrecognized logical type id %d", t.ID)
	}
}

// buildNullColumn builds a *arrow.Chunked of the given logical type where
// every element across every chunk (chunkLens) is null.
func buildNullColumn(mem memory.Allocator, t iceberg.Type, chunkLens []int) (*arrow.Chunked, arrow.DataType, error) {
	dtype, err := dtypeFor(t)
	if err != nil {
		return nil, nil, err
	}

	chunks := make([]arrow.Array, 0, len(chunkLens))
	for _, n := range chunkLens {
		arr, err := buildNullChunk(mem, t, dtype, n)
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, arr)
	}
	return arrow.NewChunked(dtype, chunks), dtype, nil
}

func buildNullChunk(mem memory.Allocator, t iceberg.Type, dtype arrow.DataType, n int) (arrow.Array, error) {
	switch t.ID {
	case iceberg.Struct:
		return buildNullStructChunk(mem, t, dtype, n)
	case iceberg.List:
		return buildNullListChunk(mem, dtype, n)
	default:
		return buildNullLeafChunk(mem, dtype, n)
	}
}

// buildNullLeafChunk handles every non-nested logical type via the
// generic array.Builder interface, which exposes AppendNull() uniformly.
func buildNullLeafChunk(mem memory.Allocator, dtype arrow.DataType, n int) (arrow.Array, error) {
	bldr := array.NewBuilder(mem, dtype)
	defer bldr.Release()
	for i := 0; i < n; i++ {
		bldr.AppendNull()
	}
	return bldr.NewArray(), nil
}

func buildNullListChunk(mem memory.Allocator, dtype arrow.DataType, n int) (arrow.Array, error) {
	listType, ok := dtype.(*arrow.ListType)
	if !ok {
		return nil, fmt.Errorf("expected list type, got %T", dtype)
	}
	bldr := array.NewListBuilder(mem, listType.Elem())
	defer bldr.Release()
	for i := 0; i < n; i++ {
		bldr.AppendNull()
	}
	return bldr.NewArray(), nil
}

// buildNullStructChunk recursively null-fills each child field builder
// alongside the struct's own validity bitmap: StructBuilder.AppendNull
// does not cascade into child builders, so every child needs its own
// explicit AppendNull call per row.
func buildNullStructChunk(mem memory.Allocator, t iceberg.Type, dtype arrow.DataType, n int) (arrow.Array, error) {
	structType, ok := dtype.(*arrow.StructType)
	if !ok {
		return nil, fmt.Errorf("expected struct type, got %T", dtype)
	}
	bldr := array.NewStructBuilder(mem, structType)
	defer bldr.Release()

	for i := 0; i < n; i++ {
		bldr.AppendNull()
		for fi := range t.Fields {
			bldr.FieldBuilder(fi).AppendNull()
		}
	}
	return bldr.NewArray(), nil
}
