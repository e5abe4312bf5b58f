package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is a single row of a named table.
type Record struct {
	Fields Fields
	ID     string
}

// Fields maps field names to values. Values are strings, numbers, bools,
// decimals or []string link lists.
type Fields map[string]any

// Has reports whether the field is present and non-empty.
func (f Fields) Has(name string) bool {
	v, ok := f[name]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	}
	return true
}

// String returns the field as a string, or "" when absent.
func (f Fields) String(name string) string {
	switch v := f[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	case []any:
		if len(v) > 0 {
			return fmt.Sprint(v[0])
		}
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Decimal returns the field as a decimal amount. Absent fields are zero.
func (f Fields) Decimal(name string) (decimal.Decimal, error) {
	switch v := f[name].(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: %w", name, err)
		}
		return d, nil
	case fmt.Stringer:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: %w", name, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %s: unsupported amount type %T", name, v)
	}
}

// OptionalDecimal returns nil when the field is absent.
func (f Fields) OptionalDecimal(name string) (*decimal.Decimal, error) {
	if !f.Has(name) {
		return nil, nil
	}
	d, err := f.Decimal(name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Int returns the field as an integer. Absent fields are zero.
func (f Fields) Int(name string) (int, error) {
	switch v := f[name].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", name, err)
		}
		return n, nil
	case fmt.Stringer:
		n, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", name, err)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("field %s: unsupported integer type %T", name, v)
	}
}

// Bool returns the field as a boolean. Numeric 1 counts as true.
func (f Fields) Bool(name string) bool {
	switch v := f[name].(type) {
	case bool:
		return v
	case int:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case fmt.Stringer:
		return v.String() == "1"
	}
	return false
}

// Links returns a link field as a list of record ids.
func (f Fields) Links(name string) []string {
	switch v := f[name].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
