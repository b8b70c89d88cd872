package app

import (
	"fmt"
	"strings"
)

const formatKey = "Format:"

// ExtractFormat returns the "Format:" entry of a style object, or nil for
// anything that is not an object or has no such key.
func ExtractFormat(style any) *string {
	m, ok := style.(map[string]any)
	if !ok {
		return nil
	}
	v, ok := m[formatKey]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return &s
}

// JoinIfList joins list elements with "; " and returns any other value unchanged.
func JoinIfList(v any) any {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, "; ")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if s, ok := e.(string); ok {
				parts[i] = s
			} else {
				parts[i] = fmt.Sprint(e)
			}
		}
		return strings.Join(parts, "; ")
	}
	return v
}

// imageString renders JoinIfList's result as the nullable image column.
func imageString(v any) *string {
	switch t := JoinIfList(v).(type) {
	case nil:
		return nil
	case string:
		return &t
	default:
		s := fmt.Sprint(t)
		return &s
	}
}
