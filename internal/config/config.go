// Package config provides the YAML configuration for a single icereader
// read job: an input file/bucket object, an expected schema, an
// optional bound predicate, an optional byte range, and reader options,
// decoded and validated before a ReadDriver ever touches a file.
package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/arrowarc/icereader/pkg/iceberg"
	"github.com/arrowarc/icereader/pkg/icereader"
	"github.com/arrowarc/icereader/pkg/predicate"
	"github.com/arrowarc/icereader/pkg/value"
)

// Config is the top-level read-job document.
type Config struct {
	Read ReadJob `yaml:"read"`
}

// ReadJob names the input, the expected schema, the optional byte range,
// and the reader Options passed to a ReadDriver.
type ReadJob struct {
	Input     Input          `yaml:"input"`
	Schema    []SchemaNode   `yaml:"expected_schema"`
	Predicate *PredicateNode `yaml:"predicate,omitempty"`
	Range     *ByteRange     `yaml:"range,omitempty"`
	Options   ReadOptions    `yaml:"options"`
	Logging   Logging        `yaml:"logging"`
}

// Input names either a local file path or a bucket+object pair; exactly
// one must be set.
type Input struct {
	Path   string `yaml:"path,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Object string `yaml:"object,omitempty"`
}

// ByteRange is a read job's byte-offset window: both ends present or both absent.
type ByteRange struct {
	Start int64 `yaml:"start"`
	End   int64 `yaml:"end"`
}

// ReadOptions mirrors icereader.Options' keys.
type ReadOptions struct {
	UseRowGroupFiltering  *bool `yaml:"use_row_group_filtering,omitempty"`
	ScanThreadPoolEnabled bool  `yaml:"scan_thread_pool_enabled"`
	ScanThreadPoolSize    int   `yaml:"scan_thread_pool_size"`
}

// Logging holds the job document's log level setting. cmd/icereader
// does not read it: the logger it hands the driver is not filtered by
// level.
type Logging struct {
	Level string `yaml:"level"`
}

// SchemaNode is one field of the YAML-authored expected schema. Nested
// struct children are recursive SchemaNode lists; List/Map element types
// are named the same way, one level down.
type SchemaNode struct {
	ID        int          `yaml:"id"`
	Name      string       `yaml:"name"`
	Type      string       `yaml:"type"`
	Required  bool         `yaml:"required"`
	Precision int          `yaml:"precision,omitempty"`
	Scale     int          `yaml:"scale,omitempty"`
	Length    int          `yaml:"length,omitempty"`
	WithTZ    bool         `yaml:"with_tz,omitempty"`
	Fields    []SchemaNode `yaml:"fields,omitempty"`
	Element   *SchemaNode  `yaml:"element,omitempty"`
}

// PredicateNode is one node of the YAML-authored bound predicate tree.
// Comparison ops (lt/le/gt/ge/eq/ne) read Value; in/not_in read Values;
// and/or read Left+Right; not reads Operand; is_null/not_null/true/false
// read neither. Value/Values are decoded against the expected schema
// field named by FieldID, the same way SchemaNode is resolved against
// typeIDFor.
type PredicateNode struct {
	Op      string         `yaml:"op"`
	FieldID int            `yaml:"field_id,omitempty"`
	Value   string         `yaml:"value,omitempty"`
	Values  []string       `yaml:"values,omitempty"`
	Left    *PredicateNode `yaml:"left,omitempty"`
	Right   *PredicateNode `yaml:"right,omitempty"`
	Operand *PredicateNode `yaml:"operand,omitempty"`
}

// ToPredicate converts the YAML predicate tree into a bound
// pkg/predicate.Predicate, or (nil, nil) when the job declares none —
// icereader.New treats a nil predicate as always-true.
func (j *ReadJob) ToPredicate(expected *iceberg.Schema) (*predicate.Predicate, error) {
	if j.Predicate == nil {
		return nil, nil
	}
	return toPredicate(j.Predicate, expected)
}

func toPredicate(n *PredicateNode, expected *iceberg.Schema) (*predicate.Predicate, error) {
	switch n.Op {
	case "true":
		return predicate.True(), nil
	case "false":
		return predicate.False(), nil
	case "is_null":
		return predicate.IsNull(n.FieldID), nil
	case "not_null":
		return predicate.NotNull(n.FieldID), nil
	case "lt", "le", "gt", "ge", "eq", "ne":
		lit, err := literalFor(n.FieldID, n.Value, expected)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "lt":
			return predicate.LT(n.FieldID, lit), nil
		case "le":
			return predicate.LE(n.FieldID, lit), nil
		case "gt":
			return predicate.GT(n.FieldID, lit), nil
		case "ge":
			return predicate.GE(n.FieldID, lit), nil
		case "eq":
			return predicate.EQ(n.FieldID, lit), nil
		default:
			return predicate.NE(n.FieldID, lit), nil
		}
	case "in", "not_in":
		lits := make([]value.Value, len(n.Values))
		for i, raw := range n.Values {
			lit, err := literalFor(n.FieldID, raw, expected)
			if err != nil {
				return nil, err
			}
			lits[i] = lit
		}
		if n.Op == "in" {
			return predicate.In(n.FieldID, lits), nil
		}
		return predicate.NotIn(n.FieldID, lits), nil
	case "and", "or":
		left, err := toPredicate(n.Left, expected)
		if err != nil {
			return nil, err
		}
		right, err := toPredicate(n.Right, expected)
		if err != nil {
			return nil, err
		}
		if n.Op == "and" {
			return predicate.And(left, right), nil
		}
		return predicate.Or(left, right), nil
	case "not":
		operand, err := toPredicate(n.Operand, expected)
		if err != nil {
			return nil, err
		}
		return predicate.Not(operand), nil
	default:
		return nil, fmt.Errorf("predicate: unrecognized op %q", n.Op)
	}
}

// literalFor decodes a YAML literal string into a value.Value typed by
// fieldID's logical type in expected, the same resolution SchemaNode
// uses for its own type name. Decimal literals are the field's unscaled
// integer as a base-10 string; binary/fixed literals are hex-encoded.
func literalFor(fieldID int, raw string, expected *iceberg.Schema) (value.Value, error) {
	field, ok := expected.TopLevelByID(fieldID)
	if !ok {
		return value.Value{}, fmt.Errorf("predicate: field id %d is not in the expected schema", fieldID)
	}
	switch field.Type.ID {
	case iceberg.Boolean:
		b, err := strconv.ParseBool(raw)
		return value.Bool(b), err
	case iceberg.Integer:
		i, err := strconv.ParseInt(raw, 10, 32)
		return value.Int32V(int32(i)), err
	case iceberg.Long:
		i, err := strconv.ParseInt(raw, 10, 64)
		return value.Int64V(i), err
	case iceberg.Float:
		f, err := strconv.ParseFloat(raw, 32)
		return value.Float32V(float32(f)), err
	case iceberg.Double:
		f, err := strconv.ParseFloat(raw, 64)
		return value.Float64V(f), err
	case iceberg.Date:
		i, err := strconv.ParseInt(raw, 10, 32)
		return value.Date32(int32(i)), err
	case iceberg.Timestamp:
		i, err := strconv.ParseInt(raw, 10, 64)
		return value.TimestampMicros(i), err
	case iceberg.String:
		return value.String(raw), nil
	case iceberg.Binary, iceberg.Fixed:
		bs, err := hex.DecodeString(raw)
		return value.Bytes(bs), err
	case iceberg.Decimal:
		unscaled, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return value.Value{}, fmt.Errorf("predicate: field %q: %q is not a valid decimal unscaled integer", field.Name, raw)
		}
		return value.DecimalV(unscaled, field.Type.Scale), nil
	default:
		return value.Value{}, fmt.Errorf("predicate: field %q: type %s does not support literal bounds", field.Name, field.Type.ID)
	}
}

// Parse reads and decodes a read-job YAML file.
func Parse(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the structural invariants a ReadDriver depends on
// before it ever touches a file.
func (c *Config) Validate() error {
	if err := c.Read.Input.validate(); err != nil {
		return err
	}
	if len(c.Read.Schema) == 0 {
		return fmt.Errorf("read.expected_schema must declare at least one field")
	}
	if err := validateSchemaNodes(c.Read.Schema); err != nil {
		return err
	}
	return nil
}

func (in Input) validate() error {
	hasPath := in.Path != ""
	hasBucket := in.Bucket != "" || in.Object != ""
	switch {
	case hasPath && hasBucket:
		return fmt.Errorf("read.input: specify either path or bucket+object, not both")
	case !hasPath && !hasBucket:
		return fmt.Errorf("read.input: one of path or bucket+object is required")
	case hasBucket && (in.Bucket == "" || in.Object == ""):
		return fmt.Errorf("read.input: bucket and object must both be set")
	}
	return nil
}

func validateSchemaNodes(nodes []SchemaNode) error {
	seen := make(map[int]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			return fmt.Errorf("expected_schema: field id %d has no name", n.ID)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("expected_schema: duplicate field id %d", n.ID)
		}
		seen[n.ID] = struct{}{}
		if _, err := typeIDFor(n.Type); err != nil {
			return fmt.Errorf("field %q: %w", n.Name, err)
		}
		if n.Type == "struct" {
			if err := validateSchemaNodes(n.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToSchema converts the YAML schema nodes into a pkg/iceberg.Schema.
func (j *ReadJob) ToSchema() (*iceberg.Schema, error) {
	fields, err := toFields(j.Schema)
	if err != nil {
		return nil, err
	}
	return iceberg.NewSchema(fields), nil
}

func toFields(nodes []SchemaNode) ([]iceberg.Field, error) {
	fields := make([]iceberg.Field, 0, len(nodes))
	for _, n := range nodes {
		f, err := toField(n)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func toField(n SchemaNode) (iceberg.Field, error) {
	id, err := typeIDFor(n.Type)
	if err != nil {
		return iceberg.Field{}, err
	}
	t := iceberg.Type{ID: id, Precision: n.Precision, Scale: n.Scale, Len: n.Length, WithTZ: n.WithTZ}

	switch id {
	case iceberg.Struct:
		children, err := toFields(n.Fields)
		if err != nil {
			return iceberg.Field{}, err
		}
		t.Fields = children
	case iceberg.List:
		if n.Element == nil {
			return iceberg.Field{}, fmt.Errorf("field %q: list type requires an element", n.Name)
		}
		elem, err := toField(*n.Element)
		if err != nil {
			return iceberg.Field{}, err
		}
		t.Element = &elem
	}

	return iceberg.Field{ID: n.ID, Name: n.Name, Type: t, Required: n.Required}, nil
}

func typeIDFor(name string) (iceberg.TypeID, error) {
	switch name {
	case "boolean":
		return iceberg.Boolean, nil
	case "integer":
		return iceberg.Integer, nil
	case "long":
		return iceberg.Long, nil
	case "float":
		return iceberg.Float, nil
	case "double":
		return iceberg.Double, nil
	case "date":
		return iceberg.Date, nil
	case "timestamp":
		return iceberg.Timestamp, nil
	case "string":
		return iceberg.String, nil
	case "binary":
		return iceberg.Binary, nil
	case "fixed":
		return iceberg.Fixed, nil
	case "decimal":
		return iceberg.Decimal, nil
	case "list":
		return iceberg.List, nil
	case "struct":
		return iceberg.Struct, nil
	case "map":
		return iceberg.Map, nil
	default:
		return 0, fmt.Errorf("unrecognized type %q", name)
	}
}

// ToOptions converts the YAML options block into icereader.Options,
// applying icereader.DefaultOptions for any unset key.
func (j *ReadJob) ToOptions() icereader.Options {
	opts := icereader.DefaultOptions()
	if j.Options.UseRowGroupFiltering != nil {
		opts.UseRowGroupFiltering = *j.Options.UseRowGroupFiltering
	}
	opts.ScanThreadPoolEnabled = j.Options.ScanThreadPoolEnabled
	opts.ScanThreadPoolSize = j.Options.ScanThreadPoolSize
	return opts
}

// Bounds returns the configured byte range as two *int64, or (nil, nil)
// when absent — the shape icereader.New expects.
func (j *ReadJob) Bounds() (*int64, *int64) {
	if j.Range == nil {
		return nil, nil
	}
	start, end := j.Range.Start, j.Range.End
	return &start, &end
}
