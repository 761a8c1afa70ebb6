// Package schema validates untyped job input against a declarative field table.
//
// The same table that validates input also names the generation keyword
// arguments, so adding a field in one place is enough to pass it to the model.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

type Kind int

const (
	String Kind = iota
	Integer
	Float
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

// Field describes one accepted input key. Default is only consulted when the
// field is optional and absent.
type Field struct {
	Name     string
	Arg      string
	Kind     Kind
	Required bool
	Default  any
}

func (f Field) arg() string {
	return lo.Ternary(f.Arg != "", f.Arg, f.Name)
}

type Schema []Field

// Validate applies every field to raw and returns the normalized values, or
// every field error found. Keys in raw that no field declares are ignored.
func (s Schema) Validate(raw map[string]any) (Values, []string) {
	values := make(Values, len(s))
	var errs []string

	for _, f := range s {
		v, ok := raw[f.Name]
		if !ok {
			if f.Required {
				errs = append(errs, fmt.Sprintf("missing required field %q", f.Name))
				continue
			}
			values[f.Name] = f.Default
			continue
		}

		coerced, ok := coerce(f.Kind, v)
		if !ok {
			errs = append(errs, fmt.Sprintf("field %q expected type %s, got %s", f.Name, f.Kind, typeName(v)))
			continue
		}
		values[f.Name] = coerced
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// Args maps validated values onto the generation keyword arguments.
func (s Schema) Args(values Values) map[string]any {
	return lo.SliceToMap(s, func(f Field) (string, any) {
		return f.arg(), values[f.Name]
	})
}

func coerce(kind Kind, v any) (any, bool) {
	switch kind {
	case String:
		s, ok := v.(string)
		return s, ok
	case Integer:
		return toInt(v)
	case Float:
		return toFloat(v)
	}
	return nil, false
}

func toInt(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return nil, false
		}
		return int(n), true
	}
	return nil, false
}

func toFloat(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return nil, false
}

func typeName(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		if strings.ContainsAny(string(n), ".eE") {
			return "float"
		}
		return "integer"
	case int, int32, int64:
		return "integer"
	case float32, float64:
		return "float"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
