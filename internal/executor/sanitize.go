package executor

import (
	"fmt"
	"math"
	"reflect"
)

// Markers substituted for values that cannot be copied as-is.
const (
	CircularMarker  = "[Circular]"
	TruncatedMarker = "[...]"
)

// Limits on how much of one run's reported data is copied. Past either limit
// the rest of a value is replaced with TruncatedMarker.
const (
	maxReportDepth = 100
	maxReportNodes = 100000
)

// JSONSafeReports copies report() argument lists into values encoding/json
// can always marshal. Scripts can report anything: NaN, functions, symbols,
// objects that contain themselves.
func JSONSafeReports(calls [][]any) [][]any {
	if calls == nil {
		return nil
	}
	s := &sanitizer{
		ancestors: make(map[uintptr]struct{}),
		budget:    maxReportNodes,
	}
	out := make([][]any, len(calls))
	for i, args := range calls {
		safe := make([]any, len(args))
		for j, v := range args {
			safe[j] = s.value(v, 0)
		}
		out[i] = safe
	}
	return out
}

// sanitizer tracks the containers on the current path, so a value that
// refers back to one of them becomes CircularMarker. A container reached
// twice along different paths is copied twice, as JSON.stringify would.
type sanitizer struct {
	ancestors map[uintptr]struct{}
	budget    int
}

func (s *sanitizer) value(v any, depth int) any {
	switch x := v.(type) {
	case nil, bool, string, int, int32, int64, uint32, uint64:
		return x
	case float64:
		return safeFloat(x)
	case float32:
		return safeFloat(float64(x))
	case []any:
		if len(x) == 0 {
			return []any{}
		}
		return s.container(x, depth, func() any {
			out := make([]any, len(x))
			for i, e := range x {
				out[i] = s.value(e, depth+1)
			}
			return out
		})
	case map[string]any:
		return s.container(x, depth, func() any {
			out := make(map[string]any, len(x))
			for k, e := range x {
				out[k] = s.value(e, depth+1)
			}
			return out
		})
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Func:
		return "[function]"
	case reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Sprint(v)
	}
	return v
}

// container copies a slice or map with copyFn unless it is already being
// copied further up the path or a limit has been reached.
func (s *sanitizer) container(v any, depth int, copyFn func() any) any {
	if depth >= maxReportDepth || s.budget <= 0 {
		return TruncatedMarker
	}
	s.budget--

	key := reflect.ValueOf(v).Pointer()
	if _, seen := s.ancestors[key]; seen {
		return CircularMarker
	}
	s.ancestors[key] = struct{}{}
	defer delete(s.ancestors, key)

	return copyFn()
}

// safeFloat renders the values JSON has no literal for the way JS prints them.
func safeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}
