// Package params decodes loosely typed option maps sent by API clients and
// CLI flags into typed values.
package params

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "fintastic/internal/errors"
)

// Params carries options decoded from a JSON body. Numbers arrive as float64.
type Params map[string]interface{}

// Has reports whether key is present and not null.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns a string param, or def when absent.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// RequireString returns a non-blank string param or InvalidParameter.
func (p Params) RequireString(key string) (string, error) {
	s := strings.TrimSpace(p.String(key, ""))
	if s == "" {
		return "", apperrors.NewInvalidParameterError(key, "is required")
	}
	return s, nil
}

// Int returns an integer param, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, apperrors.NewInvalidParameterError(key, "must be a whole number")
		}
		return int(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return def, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, apperrors.NewInvalidParameterError(key, "must be a whole number")
		}
		return i, nil
	default:
		return 0, apperrors.NewInvalidParameterError(key, "must be a whole number")
	}
}

// Float returns a numeric param, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, apperrors.NewInvalidParameterError(key, "must be a number")
		}
		return f, nil
	default:
		return 0, apperrors.NewInvalidParameterError(key, "must be a number")
	}
}

// Strings returns a list param. A single string is split on commas.
func (p Params) Strings(key string) []string {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []interface{}:
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
	case string:
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	default:
		out = append(out, fmt.Sprint(list))
	}
	return out
}

// Optional returns a lower-cased choice where "", "none" and null all mean
// the option is off.
func (p Params) Optional(key, def string) string {
	s := strings.ToLower(strings.TrimSpace(p.String(key, def)))
	if s == "none" || s == "null" {
		return ""
	}
	return s
}
