package validation

import "strings"

// StripReservedKeys returns a copy of v with every map key that starts with
// "$" or contains "." removed, at any depth. Non-container values are
// returned as is.
func StripReservedKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if reservedKey(k) {
				continue
			}
			out[k] = StripReservedKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = StripReservedKeys(val)
		}
		return out
	default:
		return v
	}
}

func reservedKey(k string) bool {
	return strings.HasPrefix(k, "$") || strings.Contains(k, ".")
}
