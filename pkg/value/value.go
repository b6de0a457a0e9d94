// Package value implements the heterogeneously-typed bound/literal values
// used by row-group statistics pushdown. Each Value carries its own Kind;
// comparing two Values of different Kinds is refused rather than silently
// coerced.
package value

import "math/big"

// Kind identifies which field of a Value is populated.
type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindDate32
	KindTimestampMicros
	KindString
	KindBytes
)

// Decimal is an arbitrary-precision unscaled integer with a fixed scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// Compare returns -1/0/1. Both decimals must share the same scale; the
// caller (StatisticsDecoder) only ever constructs same-scale pairs for a
// given field, since scale comes from the field's type.
func (d Decimal) Compare(o Decimal) int {
	return d.Unscaled.Cmp(o.Unscaled)
}

// Value is a tagged union over the bound/literal types the row-group
// evaluator and statistics decoder operate on. Comparisons must route
// by variant, never coerce.
type Value struct {
	Kind    Kind
	Bool    bool
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	Decimal Decimal
	Str     string
	Bytes   []byte
}

func Bool(b bool) Value              { return Value{Kind: KindBool, Bool: b} }
func Int32V(i int32) Value           { return Value{Kind: KindInt32, Int32: i} }
func Int64V(i int64) Value           { return Value{Kind: KindInt64, Int64: i} }
func Float32V(f float32) Value       { return Value{Kind: KindFloat32, Float32: f} }
func Float64V(f float64) Value       { return Value{Kind: KindFloat64, Float64: f} }
func Date32(days int32) Value        { return Value{Kind: KindDate32, Int32: days} }
func TimestampMicros(us int64) Value { return Value{Kind: KindTimestampMicros, Int64: us} }
func String(s string) Value          { return Value{Kind: KindString, Str: s} }
func Bytes(b []byte) Value           { return Value{Kind: KindBytes, Bytes: b} }
func DecimalV(unscaled *big.Int, scale int) Value {
	return Value{Kind: KindDecimal, Decimal: Decimal{Unscaled: unscaled, Scale: scale}}
}

// Compare returns (cmp, true) when both values share a Kind, comparing
// -1/0/1. It returns (0, false) on a Kind mismatch instead of guessing —
// a mismatch is a bug upstream (predicate literal bound to the wrong
// field type), not something to paper over.
func (v Value) Compare(o Value) (int, bool) {
	if v.Kind != o.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindBool:
		return boolCmp(v.Bool, o.Bool), true
	case KindInt32, KindDate32:
		return int32Cmp(v.Int32, o.Int32), true
	case KindInt64, KindTimestampMicros:
		return int64Cmp(v.Int64, o.Int64), true
	case KindFloat32:
		return float32Cmp(v.Float32, o.Float32), true
	case KindFloat64:
		return float64Cmp(v.Float64, o.Float64), true
	case KindDecimal:
		return v.Decimal.Compare(o.Decimal), true
	case KindString:
		return stringCmp(v.Str, o.Str), true
	case KindBytes:
		return bytesCmp(v.Bytes, o.Bytes), true
	default:
		return 0, false
	}
}

func boolCmp(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func int32Cmp(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func int64Cmp(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float32Cmp(a, b float32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Cmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func stringCmp(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func bytesCmp(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
