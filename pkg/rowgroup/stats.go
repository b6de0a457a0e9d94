package rowgroup

import (
	"math"
	"math/big"

	"github.com/apache/arrow/go/v17/parquet"

	"github.com/arrowarc/icereader/pkg/fieldmap"
	"github.com/arrowarc/icereader/pkg/iceberg"
	"github.com/arrowarc/icereader/pkg/value"
)

// Bounds is the per-evaluation bounds table: three id-keyed maps plus
// the set of ids present in the row group and the computed byte-offset
// midpoint. Single-owner, built fresh per row group and discarded after
// eval returns.
type Bounds struct {
	Lower       map[int]value.Value
	Upper       map[int]value.Value
	Nulls       map[int]int64
	ParquetCols map[int]struct{}
	Midpoint    int64
}

// DecodeStatistics translates each column's path_in_schema through the
// file→expected name map, resolves it to a field id via the expected
// schema's name index, and decodes supported statistics into typed
// bounds. Also computes the midpoint exactly once.
func DecodeStatistics(meta *Meta, expectedSchema *iceberg.Schema, fm *fieldmap.FieldMap) *Bounds {
	b := &Bounds{
		Lower:       make(map[int]value.Value),
		Upper:       make(map[int]value.Value),
		Nulls:       make(map[int]int64),
		ParquetCols: make(map[int]struct{}),
	}

	nameToID := expectedSchema.NameToID()
	var firstOffset int64 = -1
	var sumSize int64

	for _, col := range meta.Columns {
		if firstOffset < 0 {
			firstOffset = col.FileOffset
		}
		sumSize += col.TotalCompressedSize

		expectedName, ok := fm.FileToExpected[col.PathInSchema]
		if !ok {
			continue
		}
		id, ok := nameToID[expectedName]
		if !ok {
			continue
		}
		field, ok := expectedSchema.TopLevelByID(id)
		if !ok {
			continue
		}

		b.ParquetCols[id] = struct{}{}

		if col.Statistics == nil {
			continue
		}
		decodeColumnBounds(b, id, field.Type, col.Statistics)
		if col.Statistics.HasNullCount {
			b.Nulls[id] = col.Statistics.NullCount
		}
	}

	if firstOffset < 0 {
		firstOffset = 0
	}
	b.Midpoint = sumSize/2 + firstOffset
	return b
}

// decodeColumnBounds decodes one column's raw min/max into the bounds
// table by logical type. Unsupported types (FLOAT, DOUBLE, BOOLEAN,
// BINARY, FIXED, LIST, STRUCT, MAP) leave the id out of Lower/Upper —
// "bounds unknown" — without an error; malformed or missing statistics
// are always handled locally rather than failing the read.
func decodeColumnBounds(b *Bounds, id int, t iceberg.Type, stats *Statistics) {
	switch t.ID {
	case iceberg.Date:
		if v, ok := asInt32(stats.Min); stats.HasMin && ok {
			b.Lower[id] = value.Date32(v)
		}
		if v, ok := asInt32(stats.Max); stats.HasMax && ok {
			b.Upper[id] = value.Date32(v)
		}
	case iceberg.Integer:
		setInt32Bounds(b, id, stats)
		applyIntegerOverflowGuard(b, id)
	case iceberg.Long:
		setInt64Bounds(b, id, stats)
		applyIntegerOverflowGuard(b, id)
	case iceberg.String:
		if s, ok := asString(stats.Min); stats.HasMin && ok {
			b.Lower[id] = value.String(s)
		}
		if s, ok := asString(stats.Max); stats.HasMax && ok {
			b.Upper[id] = value.String(s)
		}
	case iceberg.Timestamp:
		if secs, ok := asFloat64(stats.Min); stats.HasMin && ok {
			b.Lower[id] = value.TimestampMicros(int64(math.Floor(secs * 1_000_000)))
		}
		if secs, ok := asFloat64(stats.Max); stats.HasMax && ok {
			b.Upper[id] = value.TimestampMicros(int64(math.Floor(secs * 1_000_000)))
		}
	case iceberg.Decimal:
		decodeDecimalBounds(b, id, t, stats)
	case iceberg.Float:
		// Deliberately excluded: NaN bounds make epsilon-free pushdown
		// unsafe for single-precision columns. Do not populate bounds;
		// see DESIGN.md.
	default:
		// DOUBLE, BOOLEAN, BINARY, FIXED, LIST, STRUCT, MAP: not
		// supported for bound pushdown.
	}
}

func setInt32Bounds(b *Bounds, id int, stats *Statistics) {
	if v, ok := asInt32(stats.Min); stats.HasMin && ok {
		b.Lower[id] = value.Int32V(v)
	}
	if v, ok := asInt32(stats.Max); stats.HasMax && ok {
		b.Upper[id] = value.Int32V(v)
	}
}

func setInt64Bounds(b *Bounds, id int, stats *Statistics) {
	if v, ok := asInt64(stats.Min); stats.HasMin && ok {
		b.Lower[id] = value.Int64V(v)
	}
	if v, ok := asInt64(stats.Max); stats.HasMax && ok {
		b.Upper[id] = value.Int64V(v)
	}
}

// applyIntegerOverflowGuard handles the integer overflow sentinel: if a
// supported integer type reports max < min, statistics are treated as
// absent for that column.
func applyIntegerOverflowGuard(b *Bounds, id int) {
	lo, lok := b.Lower[id]
	hi, hok := b.Upper[id]
	if !lok || !hok {
		return
	}
	if cmp, ok := hi.Compare(lo); ok && cmp < 0 {
		delete(b.Lower, id)
		delete(b.Upper, id)
	}
}

func decodeDecimalBounds(b *Bounds, id int, t iceberg.Type, stats *Statistics) {
	decode := func(raw any) (*big.Int, bool) {
		if t.Precision < 18 {
			i, ok := asInt64(raw)
			if !ok {
				return nil, false
			}
			return big.NewInt(i), true
		}
		bs, ok := asBytes(raw)
		if !ok || len(bs) == 0 {
			return nil, false
		}
		return bigEndianSignedToBigInt(bs), true
	}

	if stats.HasMin {
		if unscaled, ok := decode(stats.Min); ok {
			b.Lower[id] = value.DecimalV(unscaled, t.Scale)
		}
	}
	if stats.HasMax {
		if unscaled, ok := decode(stats.Max); ok {
			b.Upper[id] = value.DecimalV(unscaled, t.Scale)
		}
	}
}

// bigEndianSignedToBigInt decodes a big-endian two's-complement byte
// array (Parquet's DECIMAL(precision>=18) physical representation) into
// a signed *big.Int.
func bigEndianSignedToBigInt(bs []byte) *big.Int {
	negative := bs[0]&0x80 != 0
	magnitude := new(big.Int).SetBytes(bs)
	if !negative {
		return magnitude
	}
	// two's complement: value = magnitude - 2^(8*len(bs))
	full := new(big.Int).Lsh(big.NewInt(1), uint(8*len(bs)))
	return magnitude.Sub(magnitude, full)
}

func asInt32(raw any) (int32, bool) {
	switch v := raw.(type) {
	case int32:
		return v, true
	case int:
		return int32(v), true
	case int64:
		return int32(v), true
	default:
		return 0, false
	}
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func asFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// asString unboxes a decoded min/max bound for a STRING column. parquet's
// file.Reader hands back BYTE_ARRAY statistics as the named type
// parquet.ByteArray (or parquet.FixedLenByteArray for a fixed-width
// physical column), never a bare []byte or string — both are distinct
// dynamic types from Go's point of view, so each must be matched
// explicitly before converting.
func asString(raw any) (string, bool) {
	bs, ok := asBytes(raw)
	if ok {
		return string(bs), true
	}
	if s, ok := raw.(string); ok {
		return s, true
	}
	return "", false
}

// asBytes unboxes a decoded min/max bound into its raw bytes. Both
// boxed types' underlying representation is []byte, so a plain
// conversion is all that is needed once the dynamic type is matched.
func asBytes(raw any) ([]byte, bool) {
	switch v := raw.(type) {
	case []byte:
		return v, true
	case parquet.ByteArray:
		return []byte(v), true
	case parquet.FixedLenByteArray:
		return []byte(v), true
	default:
		return nil, false
	}
}
