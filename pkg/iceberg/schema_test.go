package iceberg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSchema() *Schema {
	return NewSchema([]Field{
		{ID: 1, Name: "name", Type: Type{ID: String}},
		{ID: 2, Name: "address", Type: Type{ID: Struct, Fields: []Field{
			{ID: 3, Name: "city", Type: Type{ID: String}},
		}}},
		{ID: 4, Name: "tags", Type: Type{ID: List, Element: &Field{ID: 5, Name: "element", Type: Type{ID: String}}}},
	})
}

func TestTopLevelByIDFindsOnlyTopLevelFields(t *testing.T) {
	s := testSchema()

	f, ok := s.TopLevelByID(1)
	assert.True(t, ok)
	assert.Equal(t, "name", f.Name)

	_, ok = s.TopLevelByID(3)
	assert.False(t, ok, "nested struct field id must not resolve via TopLevelByID")
}

func TestFindByIDSearchesNestedFields(t *testing.T) {
	s := testSchema()

	f, ok := s.FindByID(3)
	assert.True(t, ok)
	assert.Equal(t, "city", f.Name)

	f, ok = s.FindByID(5)
	assert.True(t, ok)
	assert.Equal(t, "element", f.Name)
}

func TestFindByIDReportsMissingID(t *testing.T) {
	s := testSchema()
	_, ok := s.FindByID(999)
	assert.False(t, ok)
}

func TestNameToIDIndexesTopLevelFieldsOnly(t *testing.T) {
	s := testSchema()
	byName := s.NameToID()

	assert.Equal(t, 1, byName["name"])
	assert.Equal(t, 2, byName["address"])
	_, ok := byName["city"]
	assert.False(t, ok)
}

func TestTypeIDStringNamesEveryType(t *testing.T) {
	cases := map[TypeID]string{
		Boolean: "boolean", Integer: "integer", Long: "long", Float: "float",
		Double: "double", Date: "date", Timestamp: "timestamp", String: "string",
		Binary: "binary", Fixed: "fixed", Decimal: "decimal", List: "list",
		Struct: "struct", Map: "map",
	}
	for id, want := range cases {
		assert.Equal(t, want, id.String())
	}
	assert.Equal(t, "unknown", TypeID(-1).String())
}
