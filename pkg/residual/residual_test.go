package residual

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/arrowarc/icereader/pkg/fieldmap"
	"github.com/arrowarc/icereader/pkg/iceberg"
	"github.com/arrowarc/icereader/pkg/predicate"
	"github.com/arrowarc/icereader/pkg/value"
)

func buildRecord(mem memory.Allocator) arrow.Record {
	nameField := arrow.Field{Name: "name_in_file", Type: arrow.BinaryTypes.String}
	ageField := arrow.Field{Name: "age", Type: arrow.PrimitiveTypes.Int32, Nullable: true}
	schema := arrow.NewSchema([]arrow.Field{nameField, ageField}, nil)

	nb := array.NewStringBuilder(mem)
	defer nb.Release()
	nb.AppendValues([]string{"alice", "bob", "carol"}, nil)
	nameArr := nb.NewArray()
	defer nameArr.Release()

	ab := array.NewInt32Builder(mem)
	defer ab.Release()
	ab.Append(30)
	ab.AppendNull()
	ab.Append(40)
	ageArr := ab.NewArray()
	defer ageArr.Release()

	return array.NewRecord(schema, []arrow.Array{nameArr, ageArr}, 3)
}

func testSchemaAndMap() (*iceberg.Schema, *fieldmap.FieldMap) {
	fileSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "name_in_file", Type: iceberg.Type{ID: iceberg.String}},
		{ID: 2, Name: "age", Type: iceberg.Type{ID: iceberg.Integer}},
	})
	expectedSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "name", Type: iceberg.Type{ID: iceberg.String}},
		{ID: 2, Name: "age", Type: iceberg.Type{ID: iceberg.Integer}},
	})
	return expectedSchema, fieldmap.New(fileSchema, expectedSchema)
}

func TestApplyAlwaysTrueReturnsUnchanged(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem)
	defer rec.Release()
	schema, fm := testSchemaAndMap()

	out, err := Apply(context.Background(), mem, rec, schema, fm, predicate.True())
	require.NoError(t, err)
	defer out.Release()
	require.EqualValues(t, 3, out.NumRows())
}

func TestApplyEqualityFiltersByRenamedColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem)
	defer rec.Release()
	schema, fm := testSchemaAndMap()

	pred := predicate.EQ(1, value.String("bob"))
	out, err := Apply(context.Background(), mem, rec, schema, fm, pred)
	require.NoError(t, err)
	defer out.Release()
	require.EqualValues(t, 1, out.NumRows())

	col := out.Column(0).(*array.String)
	require.Equal(t, "bob", col.Value(0))
}

func TestApplyNullFieldNeverSatisfiesComparison(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem)
	defer rec.Release()
	schema, fm := testSchemaAndMap()

	pred := predicate.GT(2, value.Int32V(0))
	out, err := Apply(context.Background(), mem, rec, schema, fm, pred)
	require.NoError(t, err)
	defer out.Release()
	require.EqualValues(t, 2, out.NumRows())
}

func TestApplyIsNullMatchesOnlyNullRow(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem)
	defer rec.Release()
	schema, fm := testSchemaAndMap()

	pred := predicate.IsNull(2)
	out, err := Apply(context.Background(), mem, rec, schema, fm, pred)
	require.NoError(t, err)
	defer out.Release()
	require.EqualValues(t, 1, out.NumRows())
}

func TestApplyAnd(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem)
	defer rec.Release()
	schema, fm := testSchemaAndMap()

	pred := predicate.And(predicate.NotNull(2), predicate.GE(2, value.Int32V(40)))
	out, err := Apply(context.Background(), mem, rec, schema, fm, pred)
	require.NoError(t, err)
	defer out.Release()
	require.EqualValues(t, 1, out.NumRows())
}
