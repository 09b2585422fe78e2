package parsers

import (
	"encoding/json"
	"strconv"
	"strings"
)

// maxArgumentsLen bounds what we try to decode; larger payloads pass through untouched.
const maxArgumentsLen = 16 * 1024

// boolFields are tool parameters the model sometimes sends as "true"/"yes".
var boolFields = map[string]bool{
	"available":        true,
	"available_only":   true,
	"enabled":          true,
	"unconfirmed_only": true,
}

// verbatimFields are passed through exactly as sent.
var verbatimFields = map[string]bool{
	"password": true,
}

// SanitizeArguments normalises tool call arguments produced by the model:
// strings other than passwords are trimmed, numeric strings in *_id fields become numbers and
// boolean-like strings in flag fields become booleans. Values it cannot
// coerce are dropped so the command reports the missing field. Arguments
// that are not a JSON object are returned unchanged; empty arguments become {}.
func SanitizeArguments(arguments string) string {
	if strings.TrimSpace(arguments) == "" {
		return "{}"
	}
	if len(arguments) > maxArgumentsLen {
		return arguments
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil || m == nil {
		return arguments
	}

	for k, v := range m {
		switch {
		case verbatimFields[k]:
		case strings.HasSuffix(k, "_id"):
			if id, ok := coerceID(v); ok {
				m[k] = id
			} else {
				delete(m, k)
			}
		case boolFields[k]:
			if b, ok := coerceBool(v); ok {
				m[k] = b
			} else {
				delete(m, k)
			}
		default:
			if s, ok := v.(string); ok {
				m[k] = strings.TrimSpace(s)
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}

func coerceID(v any) (uint64, bool) {
	switch vv := v.(type) {
	case float64:
		if vv < 0 || vv != float64(uint64(vv)) {
			return 0, false
		}
		return uint64(vv), true
	case string:
		n, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(vv), "#"), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func coerceBool(v any) (bool, bool) {
	switch vv := v.(type) {
	case bool:
		return vv, true
	case string:
		switch strings.ToLower(strings.TrimSpace(vv)) {
		case "true", "yes", "y", "1", "on":
			return true, true
		case "false", "no", "n", "0", "off":
			return false, true
		}
	case float64:
		return vv != 0, true
	}
	return false, false
}
