package dingz

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params holds query parameters for action endpoints. Entries whose value
// is nil, or a nil pointer, are left out of the encoded query.
type Params map[string]any

// Encode renders p as a sorted, percent-encoded query string.
func (p Params) Encode() string {
	v := url.Values{}
	for key, raw := range p {
		s, ok := formatParam(raw)
		if !ok {
			continue
		}
		v.Set(key, s)
	}
	return v.Encode()
}

func formatParam(raw any) (string, bool) {
	switch val := raw.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case *string:
		if val == nil {
			return "", false
		}
		return *val, true
	case int:
		return strconv.Itoa(val), true
	case *int:
		if val == nil {
			return "", false
		}
		return strconv.Itoa(*val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case *float64:
		if val == nil {
			return "", false
		}
		return strconv.FormatFloat(*val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case *bool:
		if val == nil {
			return "", false
		}
		return strconv.FormatBool(*val), true
	default:
		return fmt.Sprint(val), true
	}
}

// rawBody builds a key=value&... body without percent-encoding. Keys are
// sorted for a stable wire format and nil values are skipped like Params.
func rawBody(p Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s, ok := formatParam(p[k])
		if !ok {
			continue
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, "&")
}
