package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arrowarc/icereader/pkg/iceberg"
)

func TestPlanIncludesOnlyFieldsSharedByIDOrderedByExpected(t *testing.T) {
	fileSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 2, Name: "age", Type: iceberg.Type{ID: iceberg.Integer}},
		{ID: 1, Name: "name", Type: iceberg.Type{ID: iceberg.String}},
		{ID: 3, Name: "unused", Type: iceberg.Type{ID: iceberg.String}},
	})
	expectedSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "name", Type: iceberg.Type{ID: iceberg.String}},
		{ID: 2, Name: "age", Type: iceberg.Type{ID: iceberg.Integer}},
		{ID: 4, Name: "missing", Type: iceberg.Type{ID: iceberg.String}},
	})

	cols := Plan(fileSchema, expectedSchema)
	assert.Equal(t, []string{"name", "age"}, cols)
}

func TestPlanExpandsStructFieldsToDottedPaths(t *testing.T) {
	fileSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "address", Type: iceberg.Type{ID: iceberg.Struct, Fields: []iceberg.Field{
			{ID: 2, Name: "city", Type: iceberg.Type{ID: iceberg.String}},
			{ID: 3, Name: "zip", Type: iceberg.Type{ID: iceberg.String}},
		}}},
	})
	expectedSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "address", Type: iceberg.Type{ID: iceberg.Struct, Fields: []iceberg.Field{
			{ID: 2, Name: "city", Type: iceberg.Type{ID: iceberg.String}},
			{ID: 3, Name: "zip", Type: iceberg.Type{ID: iceberg.String}},
		}}},
	})

	cols := Plan(fileSchema, expectedSchema)
	assert.Equal(t, []string{"address.city", "address.zip"}, cols)
}

func TestPlanProjectsListElementWhole(t *testing.T) {
	elem := iceberg.Field{ID: 2, Name: "element", Type: iceberg.Type{ID: iceberg.String}}
	fileSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "tags", Type: iceberg.Type{ID: iceberg.List, Element: &elem}},
	})
	expectedSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "tags", Type: iceberg.Type{ID: iceberg.List, Element: &elem}},
	})

	cols := Plan(fileSchema, expectedSchema)
	assert.Equal(t, []string{"tags"}, cols)
}

func TestPlanReturnsNoColumnsWhenNothingOverlaps(t *testing.T) {
	fileSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 9, Name: "other", Type: iceberg.Type{ID: iceberg.String}},
	})
	expectedSchema := iceberg.NewSchema([]iceberg.Field{
		{ID: 1, Name: "name", Type: iceberg.Type{ID: iceberg.String}},
	})

	cols := Plan(fileSchema, expectedSchema)
	assert.Empty(t, cols)
}
