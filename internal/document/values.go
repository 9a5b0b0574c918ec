package document

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// scalar normalises a decoded YAML value. Integral numbers become int64 so
// they bind and render as integers.
func scalar(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, int64:
		return v, nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return cast.ToInt64E(x)
		}
		return x, nil
	case int, int32, uint, uint32, uint64, float32:
		return cast.ToInt64E(x)
	case []any, map[string]any:
		return nil, fmt.Errorf("value %v is not a scalar", v)
	}
	return cast.ToStringE(v)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// Key normalises instance key values decoded from YAML or command-line
// flags.
func Key(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		s, err := scalar(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

// ParseKey parses "column=value" pairs as given on the command line.
// Values that look like integers become int64.
func ParseKey(pairs map[string]string) map[string]any {
	out := make(map[string]any, len(pairs))
	for k, v := range pairs {
		if n, err := cast.ToInt64E(v); err == nil && cast.ToString(n) == v {
			out[k] = n
			continue
		}
		out[k] = v
	}
	return out
}
