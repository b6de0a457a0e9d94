package rowgroup

import (
	"fmt"

	"github.com/arrowarc/icereader/internal/icerr"
	"github.com/arrowarc/icereader/pkg/fieldmap"
	"github.com/arrowarc/icereader/pkg/iceberg"
	"github.com/arrowarc/icereader/pkg/predicate"
)

// Result is the two-valued outcome of conservative predicate pushdown:
// CannotMatch is a guarantee, MightMatch is an under-constrained
// possibility.
type Result int

const (
	MightMatch Result = iota
	CannotMatch
)

func (r Result) String() string {
	if r == CannotMatch {
		return "CANNOT_MATCH"
	}
	return "MIGHT_MATCH"
}

// Evaluator decides, given a bound predicate and a byte range, whether a
// row group might match. An Evaluator is pure and safe to share across
// worker goroutines as long as Eval is never called concurrently with
// itself on the *same* row-group Meta's mutable fields — Meta/Bounds are
// themselves single-owner per call.
type Evaluator struct {
	schema    *iceberg.Schema
	fieldMap  *fieldmap.FieldMap
	predicate *predicate.Predicate // NOT-rewritten; nil means "always true"
	start     *int64
	end       *int64
}

// New builds an Evaluator. pred may be nil (no filter, equivalent to
// always-true) or the always-true constant; both skip rewriting. start
// and end must both be nil or both set.
func New(schema *iceberg.Schema, fm *fieldmap.FieldMap, pred *predicate.Predicate, start, end *int64) *Evaluator {
	var rewritten *predicate.Predicate
	if !predicate.IsAlwaysTrue(pred) {
		rewritten = predicate.RewriteNot(pred)
	}
	return &Evaluator{schema: schema, fieldMap: fm, predicate: rewritten, start: start, end: end}
}

// Eval runs the preconditions and dispatch in order: empty row group,
// midpoint range gate, absent/always-true predicate, then leaf/boolean
// dispatch.
func (e *Evaluator) Eval(meta *Meta) (Result, error) {
	if meta.NumRows <= 0 {
		return CannotMatch, nil
	}

	bounds := DecodeStatistics(meta, e.schema, e.fieldMap)

	if e.start != nil && e.end != nil {
		if bounds.Midpoint < *e.start || bounds.Midpoint > *e.end {
			return CannotMatch, nil
		}
	}

	if e.predicate == nil {
		return MightMatch, nil
	}

	return evalNode(e.predicate, e.schema, bounds, meta.NumRows)
}

func evalNode(p *predicate.Predicate, schema *iceberg.Schema, b *Bounds, numRows int64) (Result, error) {
	switch p.Kind {
	case predicate.KindTrue:
		return MightMatch, nil
	case predicate.KindFalse:
		return CannotMatch, nil
	case predicate.KindAnd:
		left, err := evalNode(p.Left, schema, b, numRows)
		if err != nil {
			return 0, err
		}
		if left == CannotMatch {
			return CannotMatch, nil
		}
		return evalNode(p.Right, schema, b, numRows)
	case predicate.KindOr:
		left, err := evalNode(p.Left, schema, b, numRows)
		if err != nil {
			return 0, err
		}
		right, err := evalNode(p.Right, schema, b, numRows)
		if err != nil {
			return 0, err
		}
		if left == MightMatch || right == MightMatch {
			return MightMatch, nil
		}
		return CannotMatch, nil
	default:
		return evalLeaf(p, schema, b, numRows)
	}
}

func evalLeaf(p *predicate.Predicate, schema *iceberg.Schema, b *Bounds, numRows int64) (Result, error) {
	id := p.FieldID

	// is_null never raises NestedColumnPredicate: an id that doesn't
	// resolve to a top-level field is simply "can't prove" — fall
	// through to MIGHT_MATCH rather than erroring.
	if p.Kind == predicate.KindIsNull {
		if _, ok := schema.TopLevelByID(id); ok {
			if n, ok := b.Nulls[id]; ok && n == 0 {
				return CannotMatch, nil
			}
		}
		return MightMatch, nil
	}

	if _, ok := schema.TopLevelByID(id); !ok {
		return 0, fmt.Errorf("%w: field id %d", icerr.ErrNestedColumnPredicate, id)
	}

	commonCannotMatch := func() bool {
		if _, present := b.ParquetCols[id]; !present {
			return true
		}
		if n, ok := b.Nulls[id]; ok && n == numRows {
			return true
		}
		return false
	}

	switch p.Kind {
	case predicate.KindNotNull:
		if commonCannotMatch() {
			return CannotMatch, nil
		}
		return MightMatch, nil

	case predicate.KindLT:
		if commonCannotMatch() {
			return CannotMatch, nil
		}
		if lo, ok := b.Lower[id]; ok {
			if cmp, ok := lo.Compare(p.Literal); ok && cmp >= 0 {
				return CannotMatch, nil
			}
		}
		return MightMatch, nil

	case predicate.KindLE:
		if commonCannotMatch() {
			return CannotMatch, nil
		}
		if lo, ok := b.Lower[id]; ok {
			if cmp, ok := lo.Compare(p.Literal); ok && cmp > 0 {
				return CannotMatch, nil
			}
		}
		return MightMatch, nil

	case predicate.KindGT:
		if commonCannotMatch() {
			return CannotMatch, nil
		}
		if hi, ok := b.Upper[id]; ok {
			if cmp, ok := hi.Compare(p.Literal); ok && cmp <= 0 {
				return CannotMatch, nil
			}
		}
		return MightMatch, nil

	case predicate.KindGE:
		if commonCannotMatch() {
			return CannotMatch, nil
		}
		if hi, ok := b.Upper[id]; ok {
			if cmp, ok := hi.Compare(p.Literal); ok && cmp < 0 {
				return CannotMatch, nil
			}
		}
		return MightMatch, nil

	case predicate.KindEQ:
		if commonCannotMatch() {
			return CannotMatch, nil
		}
		if lo, ok := b.Lower[id]; ok {
			if cmp, ok := lo.Compare(p.Literal); ok && cmp > 0 {
				return CannotMatch, nil
			}
		}
		if hi, ok := b.Upper[id]; ok {
			if cmp, ok := hi.Compare(p.Literal); ok && cmp < 0 {
				return CannotMatch, nil
			}
		}
		return MightMatch, nil

	case predicate.KindNE, predicate.KindIn, predicate.KindNotIn:
		// NE and IN/NOT IN never narrow by bounds: a literal set's
		// members are never compared against min/max here.
		if commonCannotMatch() {
			return CannotMatch, nil
		}
		return MightMatch, nil

	default:
		return MightMatch, nil
	}
}
