package models

import (
	"encoding/json"
	"strconv"
)

// Helpers used by the *FromMap constructors. Every getter tolerates a
// missing key, a JSON null, or a value of the wrong type by returning the
// zero value (or nil for the pointer variants).

func getInt(m map[string]any, key string) int64 {
	if v := getIntPtr(m, key); v != nil {
		return *v
	}
	return 0
}

func getIntPtr(m map[string]any, key string) *int64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := toInt(v)
	if !ok {
		return nil
	}
	return &n
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func getString(m map[string]any, key string) string {
	if v := getStringPtr(m, key); v != nil {
		return *v
	}
	return ""
}

func getStringPtr(m map[string]any, key string) *string {
	v, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func getBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func getMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func getMaps(m map[string]any, key string) []map[string]any {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if mm, ok := item.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}

// ToInt converts a decoded JSON scalar to an int64 with the same tolerance
// as the model constructors.
func ToInt(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	return toInt(v)
}
