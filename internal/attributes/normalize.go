package attributes

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeAttributePayload converts every value to list form. Lists pass
// through element-wise, nil and empty strings become empty lists and any other
// scalar becomes a one-element list.
func NormalizeAttributePayload(raw map[string]any) map[string][]string {
	out := make(map[string][]string, len(raw))
	for name, value := range raw {
		out[name] = toList(value)
	}
	return out
}

func toList(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, formatScalar(item))
		}
		return out
	default:
		return []string{formatScalar(v)}
	}
}

// ParseSubcategoryValues splits comma-delimited text into trimmed, non-empty
// tokens. Collections are processed element-wise and flattened.
func ParseSubcategoryValues(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return splitTokens(v)
	case []string:
		var out []string
		for _, item := range v {
			out = append(out, splitTokens(item)...)
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, ParseSubcategoryValues(item)...)
		}
		return out
	default:
		return splitTokens(formatScalar(v))
	}
}

func splitTokens(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if token := strings.TrimSpace(part); token != "" {
			out = append(out, token)
		}
	}
	return out
}

func formatScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
