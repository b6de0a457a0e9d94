package rowgroup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/arrowarc/icereader/internal/icerr"
	"github.com/arrowarc/icereader/pkg/fieldmap"
	"github.com/arrowarc/icereader/pkg/iceberg"
	"github.com/arrowarc/icereader/pkg/predicate"
	"github.com/arrowarc/icereader/pkg/value"
)

// EvaluatorSuite exercises the evaluator's per-type comparison behavior,
// its null/missing-column handling, and its byte-range and NOT-rewrite
// semantics against a fixed schema and row-group metadata.
type EvaluatorSuite struct {
	suite.Suite
	expected *iceberg.Schema
	fm       *fieldmap.FieldMap
	meta     *Meta
}

func (s *EvaluatorSuite) SetupTest() {
	s.expected = iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "string_col", Type: iceberg.Type{ID: iceberg.String}, Required: true},
		{ID: 2, Name: "long_col", Type: iceberg.Type{ID: iceberg.Long}, Required: true},
		{ID: 3, Name: "int_col", Type: iceberg.Type{ID: iceberg.Integer}, Required: true},
		{ID: 4, Name: "float_col", Type: iceberg.Type{ID: iceberg.Float}},
		{ID: 5, Name: "null_col", Type: iceberg.Type{ID: iceberg.String}},
		{ID: 6, Name: "missing_col", Type: iceberg.Type{ID: iceberg.String}},
		{ID: 7, Name: "no_stats_col", Type: iceberg.Type{ID: iceberg.String}},
	})

	fileSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "string_col", Type: iceberg.Type{ID: iceberg.String}, Required: true},
		{ID: 2, Name: "long_col", Type: iceberg.Type{ID: iceberg.Long}, Required: true},
		{ID: 3, Name: "int_col", Type: iceberg.Type{ID: iceberg.Integer}, Required: true},
		{ID: 4, Name: "float_col_renamed", Type: iceberg.Type{ID: iceberg.Float}},
		{ID: 5, Name: "null_col", Type: iceberg.Type{ID: iceberg.String}},
		// id 6 (missing_col) intentionally absent: schema evolution added later.
		{ID: 7, Name: "no_stats_col", Type: iceberg.Type{ID: iceberg.String}},
	})

	s.fm = fieldmap.New(fileSchema, s.expected)

	s.meta = &Meta{
		NumRows: 100,
		Columns: []ColumnMeta{
			{PathInSchema: "string_col", FileOffset: 4, TotalCompressedSize: 12345,
				Statistics: &Statistics{HasMin: true, Min: "b", HasMax: true, Max: "e", HasNullCount: true, NullCount: 0}},
			{PathInSchema: "long_col", FileOffset: 12349, TotalCompressedSize: 12345,
				Statistics: &Statistics{HasMin: true, Min: int64(0), HasMax: true, Max: int64(1234567890123), HasNullCount: true, NullCount: 0}},
			{PathInSchema: "int_col", FileOffset: 24698, TotalCompressedSize: 12345,
				Statistics: &Statistics{HasMin: true, Min: int32(0), HasMax: true, Max: int32(12345), HasNullCount: true, NullCount: 0}},
			{PathInSchema: "float_col_renamed", FileOffset: 37043, TotalCompressedSize: 12345,
				Statistics: &Statistics{HasMin: true, Min: float32(0.0), HasMax: true, Max: float32(123.45), HasNullCount: true, NullCount: 123}},
			{PathInSchema: "null_col", FileOffset: 49388, TotalCompressedSize: 4,
				Statistics: &Statistics{HasNullCount: true, NullCount: 100}},
			{PathInSchema: "no_stats_col", FileOffset: 61733, TotalCompressedSize: 4, Statistics: nil},
		},
	}
}

func (s *EvaluatorSuite) eval(pred *predicate.Predicate) Result {
	start, end := int64(0), int64(123456)
	ev := New(s.expected, s.fm, pred, &start, &end)
	result, err := ev.Eval(s.meta)
	s.Require().NoError(err)
	return result
}

func (s *EvaluatorSuite) TestStringEqualityWithinBoundsMightMatch() {
	s.Equal(MightMatch, s.eval(predicate.EQ(1, value.String("b"))))
}

func (s *EvaluatorSuite) TestStringEqualityOutsideBoundsCannotMatch() {
	s.Equal(CannotMatch, s.eval(predicate.EQ(1, value.String("z"))))
}

func (s *EvaluatorSuite) TestStringLessThanMinimumCannotMatch() {
	s.Equal(CannotMatch, s.eval(predicate.LT(1, value.String("b"))))
}

func (s *EvaluatorSuite) TestStringLessOrEqualMinimumMightMatch() {
	s.Equal(MightMatch, s.eval(predicate.LE(1, value.String("b"))))
}

func (s *EvaluatorSuite) TestIntegerEqualityOutsideBoundsCannotMatch() {
	s.Equal(CannotMatch, s.eval(predicate.EQ(3, value.Int32V(-1))))
}

func (s *EvaluatorSuite) TestIntegerGreaterEqualAboveMaximumCannotMatch() {
	s.Equal(CannotMatch, s.eval(predicate.GE(3, value.Int32V(12346))))
}

func (s *EvaluatorSuite) TestFloatComparisonWithUnknownBoundsMightMatch() {
	s.Equal(MightMatch, s.eval(predicate.GT(4, value.Float32V(100.0))))
}

func (s *EvaluatorSuite) TestMissingColumnEqualityCannotMatch() {
	s.Equal(CannotMatch, s.eval(predicate.EQ(6, value.String("a"))))
}

func (s *EvaluatorSuite) TestMissingColumnIsNullMightMatch() {
	s.Equal(MightMatch, s.eval(predicate.IsNull(6)))
}

func (s *EvaluatorSuite) TestAllNullColumnIsNullMightMatch() {
	s.Equal(MightMatch, s.eval(predicate.IsNull(5)))
}

func (s *EvaluatorSuite) TestAllNullColumnIsNotNullCannotMatch() {
	s.Equal(CannotMatch, s.eval(predicate.NotNull(5)))
}

func (s *EvaluatorSuite) TestColumnWithoutStatisticsMightMatch() {
	s.Equal(MightMatch, s.eval(predicate.EQ(7, value.String("a"))))
}

func (s *EvaluatorSuite) TestZeroRowsCannotMatch() {
	ev := New(s.expected, s.fm, predicate.True(), nil, nil)
	result, err := ev.Eval(&Meta{NumRows: 0})
	s.Require().NoError(err)
	s.Equal(CannotMatch, result)
}

func (s *EvaluatorSuite) TestAbsentPredicateMightMatch() {
	ev := New(s.expected, s.fm, nil, nil, nil)
	result, err := ev.Eval(s.meta)
	s.Require().NoError(err)
	s.Equal(MightMatch, result)
}

func (s *EvaluatorSuite) TestAlwaysTrueConstantMightMatch() {
	s.Equal(MightMatch, s.eval(predicate.True()))
}

func (s *EvaluatorSuite) TestAlwaysFalseConstantCannotMatch() {
	s.Equal(CannotMatch, s.eval(predicate.False()))
}

// TestMidpointOutsideRangeAlwaysCannotMatch checks that a row group whose
// byte-offset midpoint falls outside the requested range is skipped
// regardless of predicate.
func (s *EvaluatorSuite) TestMidpointOutsideRangeAlwaysCannotMatch() {
	start, end := int64(0), int64(100) // well below the computed midpoint (24698)
	ev := New(s.expected, s.fm, predicate.True(), &start, &end)
	result, err := ev.Eval(s.meta)
	s.Require().NoError(err)
	s.Equal(CannotMatch, result)
}

// TestAllNullColumn checks that an entirely-null column never satisfies
// a value comparison or NOT NULL, but always satisfies IS NULL.
func (s *EvaluatorSuite) TestAllNullColumn() {
	s.Equal(CannotMatch, s.eval(predicate.EQ(5, value.String("x"))))
	s.Equal(CannotMatch, s.eval(predicate.NotNull(5)))
	s.Equal(MightMatch, s.eval(predicate.IsNull(5)))
}

func (s *EvaluatorSuite) TestAndOrShortCircuit() {
	s.Equal(CannotMatch, s.eval(predicate.And(predicate.EQ(1, value.String("z")), predicate.True())))
	s.Equal(MightMatch, s.eval(predicate.Or(predicate.EQ(1, value.String("z")), predicate.True())))
}

func (s *EvaluatorSuite) TestNotRewrittenToLeafComplement() {
	// NOT(string_col < "b") == string_col >= "b", which must match.
	s.Equal(MightMatch, s.eval(predicate.Not(predicate.LT(1, value.String("b")))))
}

func (s *EvaluatorSuite) TestNestedColumnPredicateErrors() {
	nested := iceberg.Field{ID: 100, Name: "inner", Type: iceberg.Type{ID: iceberg.String}}
	schemaWithStruct := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "string_col", Type: iceberg.Type{ID: iceberg.String}, Required: true},
		{ID: 50, Name: "outer", Type: iceberg.Type{ID: iceberg.Struct, Fields: []iceberg.Field{nested}}},
	})
	ev := New(schemaWithStruct, s.fm, predicate.EQ(100, value.String("x")), nil, nil)
	_, err := ev.Eval(&Meta{NumRows: 10})
	s.Require().Error(err)
	assert.True(s.T(), errors.Is(err, icerr.ErrNestedColumnPredicate))
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}
