package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind identifies the payload type of a flag value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindJSON
)

// String returns the wire name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindJSON:
		return "json"
	default:
		return "string"
	}
}

// ParseValueKind parses the server-provided type field.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "":
		return KindString, nil
	case "bool", "boolean":
		return KindBool, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "double", "number":
		return KindFloat, nil
	case "json":
		return KindJSON, nil
	default:
		return KindString, fmt.Errorf("unknown value type %q", s)
	}
}

// FlagValue is a tagged union holding a flag's configured value. The kind is
// decided once, at parse time, from the server-provided type field; only the
// field matching Kind is meaningful.
type FlagValue struct {
	Kind  ValueKind
	Bool  bool
	Str   string
	Int   int64
	Float float64
	JSON  any
}

// ParseFlagValue decodes the raw string payload served by the API into a
// typed value. The raw payload is always transported as a string; int values
// may arrive in float notation ("42.0").
func ParseFlagValue(kind ValueKind, raw string) (FlagValue, error) {
	v := FlagValue{Kind: kind}

	switch kind {
	case KindBool:
		v.Bool = isTruthy(raw)

	case KindInt:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return v, fmt.Errorf("invalid int payload %q: %w", raw, err)
		}
		v.Int = int64(f)

	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return v, fmt.Errorf("invalid float payload %q: %w", raw, err)
		}
		v.Float = f

	case KindJSON:
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return v, fmt.Errorf("invalid json payload: %w", err)
		}
		v.JSON = decoded

	default:
		v.Str = raw
	}

	return v, nil
}

// Zero returns the type-appropriate zero value for the kind.
func (k ValueKind) Zero() FlagValue {
	v := FlagValue{Kind: k}
	if k == KindJSON {
		v.JSON = map[string]any{}
	}
	return v
}

// Any returns the native Go representation of the value.
func (v FlagValue) Any() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindJSON:
		return v.JSON
	default:
		return v.Str
	}
}

// Equal reports structural equality of two values. JSON payloads are
// compared by their canonical re-encoding.
func (v FlagValue) Equal(o FlagValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindJSON:
		a, errA := json.Marshal(v.JSON)
		b, errB := json.Marshal(o.JSON)
		return errA == nil && errB == nil && string(a) == string(b)
	default:
		return v.Str == o.Str
	}
}

// AsBool coerces the value to a boolean.
func (v FlagValue) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindString:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		switch s {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off":
			return false, true
		}
		return false, false
	case KindInt:
		return v.Int != 0, true
	default:
		return false, false
	}
}

// AsString coerces the value to a string.
func (v FlagValue) AsString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindBool:
		return strconv.FormatBool(v.Bool), true
	case KindInt:
		return strconv.FormatInt(v.Int, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64), true
	case KindJSON:
		b, err := json.Marshal(v.JSON)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return "", false
	}
}

// AsInt coerces the value to an integer. Float payloads truncate; numeric
// strings are parsed.
func (v FlagValue) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		return int64(v.Float), true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsFloat coerces the value to a float.
func (v FlagValue) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsJSON coerces the value to a decoded JSON document. String payloads are
// parsed on demand.
func (v FlagValue) AsJSON() (any, bool) {
	switch v.Kind {
	case KindJSON:
		return v.JSON, true
	case KindString:
		var decoded any
		if err := json.Unmarshal([]byte(v.Str), &decoded); err != nil {
			return nil, false
		}
		return decoded, true
	default:
		return nil, false
	}
}

// isTruthy implements the permissive boolean parsing used for flag payloads.
func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
