package mapping

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

// valueMapping is the scalar leaf: exactly one column in the containing
// table, no dependent tables, no write orchestration of its own.
type valueMapping struct {
	column schema.Column
	kind   shape.Kind
}

func newValueMapping(path string, s shape.Shape) (*valueMapping, error) {
	if !s.Kind.Scalar() {
		return nil, fmt.Errorf("property %s: %s is not a scalar shape", path, s.Kind)
	}
	return &valueMapping{
		column: schema.Column{Name: path, Type: scalarColumnType(s)},
		kind:   s.Kind,
	}, nil
}

func scalarColumnType(s shape.Shape) schema.ColumnType {
	switch s.Kind {
	case shape.Varchar:
		return schema.ColumnType{Kind: schema.VarChar, Length: s.Length}
	case shape.Int:
		return schema.ColumnType{Kind: schema.Integer}
	case shape.BigInt:
		return schema.ColumnType{Kind: schema.BigInt}
	case shape.SmallInt:
		return schema.ColumnType{Kind: schema.SmallInt}
	case shape.TinyInt:
		return schema.ColumnType{Kind: schema.TinyInt}
	case shape.Float:
		return schema.ColumnType{Kind: schema.Float}
	case shape.Double:
		return schema.ColumnType{Kind: schema.Double}
	case shape.Decimal:
		return schema.ColumnType{Kind: schema.Decimal, Precision: s.Precision, Scale: s.Scale}
	case shape.Bool:
		return schema.ColumnType{Kind: schema.Boolean}
	case shape.Date:
		return schema.ColumnType{Kind: schema.Date}
	case shape.Time:
		return schema.ColumnType{Kind: schema.Time}
	case shape.Timestamp:
		return schema.ColumnType{Kind: schema.TimeStamp}
	case shape.Enum:
		return schema.ColumnType{Kind: schema.Enum, Values: s.Values}
	default:
		return schema.ColumnType{Kind: schema.Text}
	}
}

func (m *valueMapping) Tables() []schema.Table { return nil }

func (m *valueMapping) Columns() []schema.Column { return []schema.Column{m.column} }

func (m *valueMapping) Encode(value any) ([]conn.Cell, error) {
	v, err := encodeScalar(m.column.Name, m.kind, value)
	if err != nil {
		return nil, err
	}
	return []conn.Cell{{Column: m.column.Name, Value: v}}, nil
}

func (m *valueMapping) Decode(_ context.Context, _ conn.Queryer, row conn.Row, _ Key) (any, error) {
	raw, ok := row[m.column.Name]
	if !ok {
		return nil, fmt.Errorf("row has no column %s", m.column.Name)
	}
	return decodeScalar(m.column.Name, m.kind, raw)
}

func (m *valueMapping) Insert(context.Context, conn.Queryer, any, Key) error { return nil }
func (m *valueMapping) Update(context.Context, conn.Queryer, any, Key) error { return nil }
func (m *valueMapping) Delete(context.Context, conn.Queryer, Key) error      { return nil }

// encodeScalar turns an object-level scalar into a driver-friendly value.
// Booleans become 0/1 since the schema stores them as the smallest integer
// type; times pass through as time.Time.
func encodeScalar(path string, kind shape.Kind, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("property %s: nil value for non-optional shape", path)
	}
	switch kind {
	case shape.Text, shape.Varchar, shape.Decimal:
		s, ok := value.(string)
		if !ok {
			return nil, invalidValue(path, "string", value)
		}
		return s, nil
	case shape.Enum:
		s, ok := value.(string)
		if !ok {
			return nil, invalidValue(path, "string", value)
		}
		return s, nil
	case shape.Int, shape.BigInt, shape.SmallInt, shape.TinyInt:
		switch n := value.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, invalidValue(path, "integer", value)
	case shape.Float, shape.Double:
		switch n := value.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		}
		return nil, invalidValue(path, "float", value)
	case shape.Bool:
		b, ok := value.(bool)
		if !ok {
			return nil, invalidValue(path, "bool", value)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case shape.Date:
		t, ok := value.(time.Time)
		if !ok {
			return nil, invalidValue(path, "time.Time", value)
		}
		return t.Format("2006-01-02"), nil
	case shape.Time:
		t, ok := value.(time.Time)
		if !ok {
			return nil, invalidValue(path, "time.Time", value)
		}
		return t.Format("15:04:05"), nil
	case shape.Timestamp:
		t, ok := value.(time.Time)
		if !ok {
			return nil, invalidValue(path, "time.Time", value)
		}
		return t, nil
	}
	return nil, fmt.Errorf("property %s: unsupported scalar kind %s", path, kind)
}

// decodeScalar converts a driver value back to the object-level
// representation of the given kind. Drivers differ in what they hand back
// (SQLite reports text as []byte, integers as int64), so this is permissive
// on input and strict on output.
func decodeScalar(path string, kind shape.Kind, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("property %s: unexpected NULL for non-optional column", path)
	}
	switch kind {
	case shape.Text, shape.Varchar, shape.Enum, shape.Decimal:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case shape.Int, shape.BigInt, shape.SmallInt, shape.TinyInt:
		if n, ok := rawInt(raw); ok {
			return n, nil
		}
	case shape.Float, shape.Double:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case shape.Bool:
		if n, ok := rawInt(raw); ok {
			return n != 0, nil
		}
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case shape.Date:
		return rawTime(path, raw, "2006-01-02")
	case shape.Time:
		return rawTime(path, raw, "15:04:05")
	case shape.Timestamp:
		return rawTime(path, raw, "2006-01-02 15:04:05")
	}
	return nil, fmt.Errorf("property %s: cannot decode %T as %s", path, raw, kind)
}

func rawInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		// pgx hands SMALLINT columns back as int16.
		return int64(v), true
	case int8:
		return int64(v), true
	case int:
		return int64(v), true
	case []byte:
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return n, true
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func rawTime(path string, raw any, layout string) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseTimeValue(path, v, layout)
	case []byte:
		return parseTimeValue(path, string(v), layout)
	case pgtype.Time:
		// pgx hands TIME columns back as microseconds since midnight.
		if !v.Valid {
			break
		}
		midnight := time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
		return midnight.Add(time.Duration(v.Microseconds) * time.Microsecond), nil
	}
	return nil, fmt.Errorf("property %s: cannot decode %T as time", path, raw)
}

func parseTimeValue(path, s, layout string) (any, error) {
	for _, l := range []string{layout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("property %s: cannot parse time value %q", path, s)
}
