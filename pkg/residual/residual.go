// Package residual implements the per-row predicate evaluator applied
// to a decoded row-group record before concatenation.
// Unlike pkg/rowgroup's conservative two-valued pushdown, this is an
// exact per-row boolean evaluation over already-materialized Arrow data.
package residual

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/arrowarc/icereader/pkg/fieldmap"
	"github.com/arrowarc/icereader/pkg/iceberg"
	"github.com/arrowarc/icereader/pkg/predicate"
	"github.com/arrowarc/icereader/pkg/value"
)

// Apply filters rec, binding predicate leaf field ids against schema and
// resolving column names through fm.ExpectedToFile — rec still carries
// file-side labels at this point in the pipeline (§4.6: residual runs
// before the reconciler's rename pass). pred may be nil or the
// always-true constant, in which case rec is returned unchanged.
func Apply(ctx context.Context, mem memory.Allocator, rec arrow.Record, schema *iceberg.Schema, fm *fieldmap.FieldMap, pred *predicate.Predicate) (arrow.Record, error) {
	if predicate.IsAlwaysTrue(pred) {
		rec.Retain()
		return rec, nil
	}

	mask, err := evaluateMask(mem, rec, schema, fm, pred)
	if err != nil {
		return nil, err
	}
	defer mask.Release()

	filtered, err := compute.FilterRecordBatch(ctx, rec, mask, compute.FilterOptions{NullSelection: compute.SelectionEmitNulls})
	if err != nil {
		return nil, fmt.Errorf("residual filter: %w", err)
	}
	return filtered, nil
}

// evaluateMask builds a boolean selection array, one entry per row,
// evaluating pred row by row against rec's columns.
func evaluateMask(mem memory.Allocator, rec arrow.Record, schema *iceberg.Schema, fm *fieldmap.FieldMap, pred *predicate.Predicate) (*array.Boolean, error) {
	cols, err := resolveColumns(rec, schema, fm, pred)
	if err != nil {
		return nil, err
	}

	bldr := array.NewBooleanBuilder(mem)
	defer bldr.Release()

	n := int(rec.NumRows())
	for row := 0; row < n; row++ {
		keep, err := evalRow(pred, cols, row)
		if err != nil {
			return nil, err
		}
		bldr.Append(keep)
	}
	return bldr.NewBooleanArray(), nil
}

// resolveColumns walks pred once to build a field-id -> arrow.Array
// lookup, failing fast if a referenced field cannot be resolved to a
// column in rec.
func resolveColumns(rec arrow.Record, schema *iceberg.Schema, fm *fieldmap.FieldMap, pred *predicate.Predicate) (map[int]arrow.Array, error) {
	cols := make(map[int]arrow.Array)
	var walk func(p *predicate.Predicate) error
	walk = func(p *predicate.Predicate) error {
		if p == nil {
			return nil
		}
		switch p.Kind {
		case predicate.KindAnd, predicate.KindOr:
			if err := walk(p.Left); err != nil {
				return err
			}
			return walk(p.Right)
		case predicate.KindNot:
			return walk(p.Operand)
		case predicate.KindTrue, predicate.KindFalse:
			return nil
		default:
			if _, ok := cols[p.FieldID]; ok {
				return nil
			}
			field, ok := schema.TopLevelByID(p.FieldID)
			if !ok {
				return fmt.Errorf("residual filter: field id %d not a top-level field", p.FieldID)
			}
			fileName, ok := fm.ExpectedToFile[field.Name]
			if !ok {
				fileName = field.Name
			}
			idx := rec.Schema().FieldIndices(fileName)
			if len(idx) == 0 {
				return fmt.Errorf("residual filter: column %q not present in record", fileName)
			}
			cols[p.FieldID] = rec.Column(idx[0])
			return nil
		}
	}
	if err := walk(pred); err != nil {
		return nil, err
	}
	return cols, nil
}

func evalRow(p *predicate.Predicate, cols map[int]arrow.Array, row int) (bool, error) {
	switch p.Kind {
	case predicate.KindTrue:
		return true, nil
	case predicate.KindFalse:
		return false, nil
	case predicate.KindAnd:
		l, err := evalRow(p.Left, cols, row)
		if err != nil || !l {
			return false, err
		}
		return evalRow(p.Right, cols, row)
	case predicate.KindOr:
		l, err := evalRow(p.Left, cols, row)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalRow(p.Right, cols, row)
	case predicate.KindNot:
		v, err := evalRow(p.Operand, cols, row)
		return !v, err
	default:
		return evalLeaf(p, cols, row)
	}
}

func evalLeaf(p *predicate.Predicate, cols map[int]arrow.Array, row int) (bool, error) {
	arr := cols[p.FieldID]
	isNull := arr.IsNull(row)

	switch p.Kind {
	case predicate.KindIsNull:
		return isNull, nil
	case predicate.KindNotNull:
		return !isNull, nil
	}

	if isNull {
		// SQL three-valued logic collapses to "not kept" for every
		// comparison and membership leaf once the field is null.
		return false, nil
	}

	v, err := valueAt(arr, row)
	if err != nil {
		return false, fmt.Errorf("field id %d: %w", p.FieldID, err)
	}

	switch p.Kind {
	case predicate.KindLT:
		cmp, ok := v.Compare(p.Literal)
		return ok && cmp < 0, nil
	case predicate.KindLE:
		cmp, ok := v.Compare(p.Literal)
		return ok && cmp <= 0, nil
	case predicate.KindGT:
		cmp, ok := v.Compare(p.Literal)
		return ok && cmp > 0, nil
	case predicate.KindGE:
		cmp, ok := v.Compare(p.Literal)
		return ok && cmp >= 0, nil
	case predicate.KindEQ:
		cmp, ok := v.Compare(p.Literal)
		return ok && cmp == 0, nil
	case predicate.KindNE:
		cmp, ok := v.Compare(p.Literal)
		return ok && cmp != 0, nil
	case predicate.KindIn:
		for _, lit := range p.Literals {
			if cmp, ok := v.Compare(lit); ok && cmp == 0 {
				return true, nil
			}
		}
		return false, nil
	case predicate.KindNotIn:
		for _, lit := range p.Literals {
			if cmp, ok := v.Compare(lit); ok && cmp == 0 {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unsupported residual predicate kind %d", p.Kind)
	}
}

// valueAt extracts row's value from arr as a value.Value, routing by the
// array's concrete Arrow type. Nested types (struct/list/map) are not
// supported residual-filter targets, matching the evaluator's top-level
// only scope.
func valueAt(arr arrow.Array, row int) (value.Value, error) {
	switch a := arr.(type) {
	case *array.Boolean:
		return value.Bool(a.Value(row)), nil
	case *array.Int32:
		return value.Int32V(a.Value(row)), nil
	case *array.Int64:
		return value.Int64V(a.Value(row)), nil
	case *array.Float32:
		return value.Float32V(a.Value(row)), nil
	case *array.Float64:
		return value.Float64V(a.Value(row)), nil
	case *array.String:
		return value.String(a.Value(row)), nil
	case *array.Binary:
		return value.Bytes(a.Value(row)), nil
	case *array.FixedSizeBinary:
		return value.Bytes(a.Value(row)), nil
	case *array.Date32:
		return value.Date32(int32(a.Value(row))), nil
	case *array.Timestamp:
		ts, ok := a.DataType().(*arrow.TimestampType)
		if !ok || ts.Unit != arrow.Microsecond {
			return value.Value{}, fmt.Errorf("unsupported timestamp unit for residual filter")
		}
		return value.TimestampMicros(int64(a.Value(row))), nil
	case *array.Decimal128:
		dt, ok := a.DataType().(*arrow.Decimal128Type)
		if !ok {
			return value.Value{}, fmt.Errorf("unexpected decimal128 data type")
		}
		d := a.Value(row)
		return value.DecimalV(d.BigInt(), int(dt.Scale)), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported column type %s for residual filter", arr.DataType())
	}
}
