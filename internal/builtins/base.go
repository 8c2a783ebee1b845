// ABOUTME: Shared parameter coercion helpers for builtin tools.
// ABOUTME: Parameters arrive as map[string]any from routing, directives, or JSON.

package builtins

import (
	"fmt"
	"strconv"

	"github.com/strandlabs/strand/internal/tool"
)

// stringParam reads a string parameter, tolerating missing keys.
func stringParam(params map[string]any, name string) (string, bool) {
	v, ok := params[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intParam reads an integer parameter. Directive parsing yields strings and
// JSON yields float64, so all three arrive here.
func intParam(params map[string]any, name string, fallback int) int {
	v, ok := params[name]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return fallback
}

// failure builds a failed Result with a formatted error.
func failure(format string, args ...any) tool.Result {
	return tool.Result{Success: false, Error: fmt.Sprintf(format, args...)}
}
