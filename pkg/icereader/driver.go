package icereader

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/arrowarc/icereader/internal/icerr"
	"github.com/arrowarc/icereader/pkg/fieldmap"
	"github.com/arrowarc/icereader/pkg/iceberg"
	"github.com/arrowarc/icereader/pkg/predicate"
	"github.com/arrowarc/icereader/pkg/projection"
	"github.com/arrowarc/icereader/pkg/reconcile"
	"github.com/arrowarc/icereader/pkg/residual"
	"github.com/arrowarc/icereader/pkg/rowgroup"
)

// ReadDriver orchestrates a single file's columnar read: build
// FieldMap, compute the projection, prune row groups, residual-filter,
// concatenate, and reconcile the schema.
type ReadDriver struct {
	input     InputFile
	expected  *iceberg.Schema
	pred      *predicate.Predicate
	start     *int64
	end       *int64
	opts      Options
	mem       memory.Allocator
	logger    log.Logger
	stats     Stats
}

// New builds a ReadDriver. pred, start and end may be nil: the bound
// predicate defaults to always-true, and the byte range is absent
// unless both ends are given.
func New(input InputFile, expected *iceberg.Schema, pred *predicate.Predicate, start, end *int64, opts Options, mem memory.Allocator, logger log.Logger) *ReadDriver {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ReadDriver{
		input:    input,
		expected: expected,
		pred:     pred,
		start:    start,
		end:      end,
		opts:     opts,
		mem:      mem,
		logger:   logger,
	}
}

// Stats returns the accumulated per-stage timers. Safe to call after
// Read returns; reading mid-flight returns a partial snapshot.
func (d *ReadDriver) Stats() Report {
	return d.stats.Report()
}

// Read runs the full read pipeline and returns the expected-schema-
// shaped, id-correct, null-filled table.
func (d *ReadDriver) Read(ctx context.Context) (arrow.Table, error) {
	if err := validateExpectedSchema(d.expected); err != nil {
		return nil, err
	}

	cursor, size, err := d.input.NewCursor(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening input cursor: %w", err)
	}

	rdr, err := file.NewParquetReader(cursor)
	if err != nil {
		return nil, fmt.Errorf("opening parquet reader: %w", err)
	}
	defer rdr.Close()
	_ = size

	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, d.mem)
	if err != nil {
		return nil, fmt.Errorf("building arrow file reader: %w", err)
	}

	fileSchemaArrow, err := arrowRdr.Schema()
	if err != nil {
		return nil, fmt.Errorf("reading file schema: %w", err)
	}
	fileSchema := schemaFromArrow(fileSchemaArrow)

	fm := fieldmap.New(fileSchema, d.expected)
	missing := missingFields(fileSchema, d.expected)

	colsToRead := projection.Plan(fileSchema, d.expected)
	colIndices := resolveColumnIndices(fileSchemaArrow, colsToRead)

	evaluator := rowgroup.New(d.expected, fm, d.pred, d.start, d.end)

	numRowGroups := rdr.NumRowGroups()
	keptGroups := make([]int, 0, numRowGroups)

	if !d.opts.UseRowGroupFiltering {
		for i := 0; i < numRowGroups; i++ {
			keptGroups = append(keptGroups, i)
		}
	} else {
		err = d.stats.observe(StageRowGroupFiltering, func() error {
			for i := 0; i < numRowGroups; i++ {
				meta, err := rowGroupMeta(rdr, i, fileSchema, fm)
				if err != nil {
					return fmt.Errorf("row group %d metadata: %w", i, err)
				}
				result, err := evaluator.Eval(meta)
				if err != nil {
					return fmt.Errorf("row group %d evaluation: %w", i, err)
				}
				d.stats.addRowGroupEvaluated(result == rowgroup.MightMatch)
				if result == rowgroup.MightMatch {
					keptGroups = append(keptGroups, i)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(keptGroups) == 0 {
		// emptyTable is already expected-named and includes the missing
		// fields, so it does not go through reconciliation.
		return emptyTable(d.expected), nil
	}

	var records []arrow.Record
	err = d.stats.observe(StageReadRowGroups, func() error {
		var readErr error
		if d.opts.ScanThreadPoolEnabled {
			records, readErr = d.readRowGroupsParallel(ctx, arrowRdr, colIndices, keptGroups, fileSchema, fm)
		} else {
			records, readErr = d.readRowGroupsSequential(ctx, arrowRdr, colIndices, keptGroups, fileSchema, fm)
		}
		return readErr
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	if len(records) == 0 {
		return emptyTable(d.expected), nil
	}
	table := array.NewTableFromRecords(records[0].Schema(), records)

	return reconcileResult(d.mem, table, fm, missing, &d.stats)
}

func reconcileResult(mem memory.Allocator, table arrow.Table, fm *fieldmap.FieldMap, missing []reconcile.MissingField, stats *Stats) (arrow.Table, error) {
	if fm.Identity() && len(missing) == 0 {
		stats.addRowsEmitted(table.NumRows())
		return table, nil
	}
	var out arrow.Table
	err := stats.observe(StageSchemaEvolution, func() error {
		var err error
		out, err = reconcile.Reconcile(mem, table, fm, missing)
		return err
	})
	if err != nil {
		return nil, err
	}
	stats.addRowsEmitted(out.NumRows())
	return out, nil
}

// readRowGroupsSequential decodes one row group at a time, residual
// filters it, and returns the kept records in file order — the default
// single-threaded cooperative model.
func (d *ReadDriver) readRowGroupsSequential(ctx context.Context, arrowRdr *pqarrow.FileReader, colIndices, keptGroups []int, fileSchema *iceberg.Schema, fm *fieldmap.FieldMap) ([]arrow.Record, error) {
	var out []arrow.Record
	for _, rg := range keptGroups {
		rec, err := d.readAndFilterRowGroup(ctx, arrowRdr, colIndices, rg, fileSchema, fm)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// readRowGroupsParallel runs a bounded worker pool: each kept row
// group's decode + residual-filter step is scheduled on an errgroup,
// results reassembled in file order before concatenation.
func (d *ReadDriver) readRowGroupsParallel(ctx context.Context, arrowRdr *pqarrow.FileReader, colIndices, keptGroups []int, fileSchema *iceberg.Schema, fm *fieldmap.FieldMap) ([]arrow.Record, error) {
	results := make([]arrow.Record, len(keptGroups))
	g, gctx := errgroup.WithContext(ctx)
	limit := d.opts.ScanThreadPoolSize
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	for idx, rg := range keptGroups {
		idx, rg := idx, rg
		g.Go(func() error {
			rec, err := d.readAndFilterRowGroup(gctx, arrowRdr, colIndices, rg, fileSchema, fm)
			if err != nil {
				return err
			}
			mu.Lock()
			results[idx] = rec
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, rec := range results {
			if rec != nil {
				rec.Release()
			}
		}
		return nil, err
	}

	out := make([]arrow.Record, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (d *ReadDriver) readAndFilterRowGroup(ctx context.Context, arrowRdr *pqarrow.FileReader, colIndices []int, rg int, fileSchema *iceberg.Schema, fm *fieldmap.FieldMap) (arrow.Record, error) {
	recordReader, err := arrowRdr.GetRecordReader(ctx, colIndices, []int{rg})
	if err != nil {
		return nil, fmt.Errorf("row group %d record reader: %w", rg, err)
	}
	defer recordReader.Release()

	var chunks []arrow.Record
	for recordReader.Next() {
		rec := recordReader.Record()
		rec.Retain()
		chunks = append(chunks, rec)
	}
	if err := recordReader.Err(); err != nil {
		for _, c := range chunks {
			c.Release()
		}
		return nil, fmt.Errorf("row group %d decode: %w", rg, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	var rec arrow.Record
	if len(chunks) == 1 {
		rec = chunks[0]
	} else {
		table := array.NewTableFromRecords(chunks[0].Schema(), chunks)
		tr := array.NewTableReader(table, table.NumRows())
		defer tr.Release()
		for _, c := range chunks {
			c.Release()
		}
		if !tr.Next() {
			return nil, nil
		}
		rec = tr.Record()
		rec.Retain()
	}

	filtered, err := residual.Apply(ctx, d.mem, rec, d.expected, fm, d.pred)
	rec.Release()
	if err != nil {
		return nil, fmt.Errorf("row group %d residual filter: %w", rg, err)
	}
	if filtered.NumRows() == 0 {
		filtered.Release()
		return nil, nil
	}
	level.Debug(d.logger).Log("msg", "row group decoded", "row_group", rg, "rows", filtered.NumRows())
	return filtered, nil
}

// rowGroupMeta converts one parquet row group's real metadata into the
// pure pkg/rowgroup.Meta value the evaluator operates on. Malformed
// per-column statistics are swallowed here: the column is kept with
// Statistics == nil, which the evaluator treats as "bounds unknown".
func rowGroupMeta(rdr *file.Reader, rg int, fileSchema *iceberg.Schema, fm *fieldmap.FieldMap) (*rowgroup.Meta, error) {
	rgMeta := rdr.MetaData().RowGroup(rg)
	meta := &rowgroup.Meta{NumRows: rgMeta.NumRows()}

	for i := 0; i < rgMeta.NumColumns(); i++ {
		colMeta, err := rgMeta.ColumnChunk(i)
		if err != nil {
			continue
		}
		cm := rowgroup.ColumnMeta{
			PathInSchema:        colMeta.PathInSchema().String(),
			FileOffset:          colMeta.FileOffset(),
			TotalCompressedSize: colMeta.TotalCompressedSize(),
		}

		if stats, err := colMeta.Statistics(); err == nil && stats != nil {
			s := &rowgroup.Statistics{}
			if stats.HasMinMax() {
				// Min()/Max() box the column's physical type: a plain Go
				// int32/int64/float32/float64 for fixed-width columns, but
				// parquet.ByteArray or parquet.FixedLenByteArray (not a
				// bare []byte or string) for BYTE_ARRAY/FIXED_LEN_BYTE_ARRAY
				// columns. rowgroup.DecodeStatistics unboxes these per
				// logical type rather than asserting []byte directly.
				s.HasMin, s.Min = true, stats.Min()
				s.HasMax, s.Max = true, stats.Max()
			}
			if stats.HasNullCount() {
				s.HasNullCount, s.NullCount = true, stats.NullCount()
			}
			cm.Statistics = s
		}

		meta.Columns = append(meta.Columns, cm)
	}
	return meta, nil
}

// schemaFromArrow builds a minimal pkg/iceberg.Schema from a physical
// Arrow schema for file-side lookups the pipeline needs (field map,
// projection). Field ids come from the Arrow field's "PARQUET:field_id"
// metadata key written by pqarrow for Iceberg-produced files; a field
// missing that key cannot participate in id-based reconciliation and is
// skipped, matching this reader's "missing field" treatment.
func schemaFromArrow(s *arrow.Schema) *iceberg.Schema {
	var fields []iceberg.Field
	for _, f := range s.Fields() {
		id, ok := fieldID(f)
		if !ok {
			continue
		}
		fields = append(fields, iceberg.Field{
			ID:       id,
			Name:     f.Name,
			Type:     logicalTypeOf(f.Type),
			Required: !f.Nullable,
		})
	}
	return iceberg.NewSchema(fields)
}

const fieldIDMetaKey = "PARQUET:field_id"

func fieldID(f arrow.Field) (int, bool) {
	idx := f.Metadata.FindKey(fieldIDMetaKey)
	if idx < 0 {
		return 0, false
	}
	var id int
	if _, err := fmt.Sscanf(f.Metadata.Values()[idx], "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

// logicalTypeOf maps a physical Arrow type back to the closed Iceberg
// logical-type set this reader understands, covering only the types
// decodeColumnBounds/reconcile need to recognize by ID; precision/scale
// and nested shape are not recovered from a bare Arrow schema and are
// therefore left at their zero value here — SchemaIdMismatch callers
// only need TypeID for routing, never these file-schema-only fields.
func logicalTypeOf(t arrow.DataType) iceberg.Type {
	switch t.ID() {
	case arrow.BOOL:
		return iceberg.Type{ID: iceberg.Boolean}
	case arrow.INT32:
		return iceberg.Type{ID: iceberg.Integer}
	case arrow.INT64:
		return iceberg.Type{ID: iceberg.Long}
	case arrow.FLOAT32:
		return iceberg.Type{ID: iceberg.Float}
	case arrow.FLOAT64:
		return iceberg.Type{ID: iceberg.Double}
	case arrow.DATE32:
		return iceberg.Type{ID: iceberg.Date}
	case arrow.TIMESTAMP:
		return iceberg.Type{ID: iceberg.Timestamp}
	case arrow.STRING:
		return iceberg.Type{ID: iceberg.String}
	case arrow.BINARY:
		return iceberg.Type{ID: iceberg.Binary}
	case arrow.FIXED_SIZE_BINARY:
		return iceberg.Type{ID: iceberg.Fixed}
	case arrow.DECIMAL128:
		return iceberg.Type{ID: iceberg.Decimal}
	case arrow.LIST:
		return iceberg.Type{ID: iceberg.List}
	case arrow.STRUCT:
		return iceberg.Type{ID: iceberg.Struct}
	case arrow.MAP:
		return iceberg.Type{ID: iceberg.Map}
	default:
		return iceberg.Type{ID: iceberg.Binary}
	}
}

// missingFields returns every expected top-level field whose id is not
// present in fileSchema, paired with its index in expectedSchema's field
// order — the positions reconcile.Reconcile needs to splice null-filled
// columns back in.
func missingFields(fileSchema, expectedSchema *iceberg.Schema) []reconcile.MissingField {
	var missing []reconcile.MissingField
	for i, f := range expectedSchema.Fields {
		if _, ok := fileSchema.TopLevelByID(f.ID); !ok {
			missing = append(missing, reconcile.MissingField{Index: i, Field: f})
		}
	}
	return missing
}

// resolveColumnIndices matches projection.Plan's dotted top-level roots
// against the physical Arrow schema's top-level field names, returning
// indices in colsToRead's (expected-schema) order. Nested struct
// sub-fields are always read through their container's single top-level
// index, since pqarrow projects whole top-level columns.
func resolveColumnIndices(schema *arrow.Schema, colsToRead []string) []int {
	if len(colsToRead) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(colsToRead))
	var indices []int
	for _, c := range colsToRead {
		root := c
		if i := strings.IndexByte(c, '.'); i >= 0 {
			root = c[:i]
		}
		if _, dup := seen[root]; dup {
			continue
		}
		seen[root] = struct{}{}
		if idx := schema.FieldIndices(root); len(idx) > 0 {
			indices = append(indices, idx[0])
		}
	}
	return indices
}

// emptyTable builds a zero-row table shaped like expected, used for the
// "no row groups matched" and "file has zero kept row groups" paths.
func emptyTable(expected *iceberg.Schema) arrow.Table {
	fields := make([]arrow.Field, len(expected.Fields))
	cols := make([]arrow.Array, len(expected.Fields))
	for i, f := range expected.Fields {
		dt := arrowTypeFor(f.Type)
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: !f.Required}
		bldr := array.NewBuilder(memory.DefaultAllocator, dt)
		cols[i] = bldr.NewArray()
		bldr.Release()
	}
	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, cols, 0)
	defer rec.Release()
	for _, c := range cols {
		c.Release()
	}
	return array.NewTableFromRecords(schema, []arrow.Record{rec})
}

func arrowTypeFor(t iceberg.Type) arrow.DataType {
	switch t.ID {
	case iceberg.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case iceberg.Integer:
		return arrow.PrimitiveTypes.Int32
	case iceberg.Long:
		return arrow.PrimitiveTypes.Int64
	case iceberg.Float:
		return arrow.PrimitiveTypes.Float32
	case iceberg.Double:
		return arrow.PrimitiveTypes.Float64
	case iceberg.Date:
		return arrow.FixedWidthTypes.Date32
	case iceberg.Timestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case iceberg.String:
		return arrow.BinaryTypes.String
	case iceberg.Binary:
		return arrow.BinaryTypes.Binary
	case iceberg.Fixed:
		return &arrow.FixedSizeBinaryType{ByteWidth: t.Len}
	case iceberg.Decimal:
		return &arrow.Decimal128Type{Precision: int32(t.Precision), Scale: int32(t.Scale)}
	default:
		return arrow.BinaryTypes.Binary
	}
}

// validateExpectedSchema rejects a duplicate field id before a read
// starts — every downstream id-keyed index (fieldmap, evaluator bounds,
// reconciler) assumes expected.Fields has no two entries sharing an id.
func validateExpectedSchema(expected *iceberg.Schema) error {
	seen := make(map[int]string, len(expected.Fields))
	for _, f := range expected.Fields {
		if existing, ok := seen[f.ID]; ok {
			return fmt.Errorf("%w: id %d used by both %q and %q", icerr.ErrSchemaIDMismatch, f.ID, existing, f.Name)
		}
		seen[f.ID] = f.Name
	}
	return nil
}
