// Package iceberg is a local, self-contained value type for an Iceberg
// logical schema: a stable field-id-keyed structure, not the Parquet
// file schema. Its lookup surface mirrors Iceberg's own
// schema.as_struct().field(id=...) / find_field(id) / lazy_name_to_id()
// API; see DESIGN.md for why this is not wired to
// github.com/polarsignals/iceberg-go directly.
package iceberg

import "sync"

// TypeID is the closed set of Iceberg logical types this reader
// understands.
type TypeID int

const (
	Boolean TypeID = iota
	Integer
	Long
	Float
	Double
	Date
	Timestamp
	String
	Binary
	Fixed
	Decimal
	List
	Struct
	Map
)

func (id TypeID) String() string {
	switch id {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	case String:
		return "string"
	case Binary:
		return "binary"
	case Fixed:
		return "fixed"
	case Decimal:
		return "decimal"
	case List:
		return "list"
	case Struct:
		return "struct"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// Type is a sum type over the logical types a Field may carry. Only the
// members relevant to ID select a meaningful zero value.
type Type struct {
	ID TypeID

	// Fixed
	Len int
	// Decimal
	Precision, Scale int
	// Timestamp
	WithTZ bool
	// List
	Element *Field
	// Struct
	Fields []Field
	// Map
	Key, Value *Field
}

// Field is one entry of a Schema or of a nested Struct type. ID is the
// field's permanent identity; Name is advisory and may be renamed across
// schema evolution without changing ID.
type Field struct {
	ID       int
	Name     string
	Type     Type
	Required bool
}

// Schema is an ordered, top-level field list plus lazily built id/name
// indices. A Schema is immutable once constructed and safe to share
// across goroutines.
type Schema struct {
	Fields []Field

	once      sync.Once
	byID      map[int]*Field
	byName    map[string]int
	allByID   map[int]*Field // includes nested fields, for diagnostics
}

// NewSchema builds a Schema from an ordered field list.
func NewSchema(fields []Field) *Schema {
	return &Schema{Fields: fields}
}

func (s *Schema) buildIndex() {
	s.once.Do(func() {
		s.byID = make(map[int]*Field, len(s.Fields))
		s.byName = make(map[string]int, len(s.Fields))
		s.allByID = make(map[int]*Field)
		for i := range s.Fields {
			f := &s.Fields[i]
			s.byID[f.ID] = f
			s.byName[f.Name] = f.ID
			indexNested(f, s.allByID)
		}
	})
}

func indexNested(f *Field, into map[int]*Field) {
	into[f.ID] = f
	switch f.Type.ID {
	case Struct:
		for i := range f.Type.Fields {
			indexNested(&f.Type.Fields[i], into)
		}
	case List:
		if f.Type.Element != nil {
			indexNested(f.Type.Element, into)
		}
	case Map:
		if f.Type.Key != nil {
			indexNested(f.Type.Key, into)
		}
		if f.Type.Value != nil {
			indexNested(f.Type.Value, into)
		}
	}
}

// TopLevelByID returns the top-level field with the given id: a
// predicate or field-map lookup that only succeeds for fields directly
// on the expected struct, never for a field nested inside a
// STRUCT/LIST/MAP.
func (s *Schema) TopLevelByID(id int) (*Field, bool) {
	s.buildIndex()
	f, ok := s.byID[id]
	return f, ok
}

// FindByID searches the full field tree, including nested fields. It
// exists for diagnostics (e.g. naming a nested-column predicate's field
// in an error message) — hot paths use TopLevelByID.
func (s *Schema) FindByID(id int) (*Field, bool) {
	s.buildIndex()
	f, ok := s.allByID[id]
	return f, ok
}

// NameToID returns the lazily built top-level name→id index.
func (s *Schema) NameToID() map[string]int {
	s.buildIndex()
	return s.byName
}
