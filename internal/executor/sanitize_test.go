package executor

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSafeReports_Nil(t *testing.T) {
	assert.Nil(t, JSONSafeReports(nil))
}

func TestJSONSafeReports_Floats(t *testing.T) {
	got := JSONSafeReports([][]any{{math.NaN(), math.Inf(1), math.Inf(-1), 1.5, float32(2)}})

	assert.Equal(t, [][]any{{"NaN", "Infinity", "-Infinity", 1.5, 2.0}}, got)
}

func TestJSONSafeReports_Functions(t *testing.T) {
	got := JSONSafeReports([][]any{{func() {}, map[string]any{"fn": func(int) int { return 0 }}}})

	assert.Equal(t, [][]any{{"[function]", map[string]any{"fn": "[function]"}}}, got)
}

func TestJSONSafeReports_NestedArrays(t *testing.T) {
	in := [][]any{{[]any{int64(1), []any{math.NaN(), []any{}}, "x"}}}

	got := JSONSafeReports(in)

	assert.Equal(t, [][]any{{[]any{int64(1), []any{"NaN", []any{}}, "x"}}}, got)
}

func TestJSONSafeReports_Cycles(t *testing.T) {
	self := map[string]any{"name": "a"}
	self["self"] = self

	list := []any{int64(1), nil}
	list[1] = list

	outer := map[string]any{}
	inner := map[string]any{"up": outer}
	outer["down"] = inner

	got := JSONSafeReports([][]any{{self, list, outer}})

	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"name": "a", "self": CircularMarker}, got[0][0])
	assert.Equal(t, []any{int64(1), CircularMarker}, got[0][1])
	assert.Equal(t, map[string]any{"down": map[string]any{"up": CircularMarker}}, got[0][2])

	_, err := json.Marshal(got)
	assert.NoError(t, err)
}

func TestJSONSafeReports_SharedValuesAreCopiedTwice(t *testing.T) {
	shared := map[string]any{"v": int64(1)}

	got := JSONSafeReports([][]any{{[]any{shared, shared}}, {shared}})

	assert.Equal(t, []any{map[string]any{"v": int64(1)}, map[string]any{"v": int64(1)}}, got[0][0])
	assert.Equal(t, map[string]any{"v": int64(1)}, got[1][0])
}

func TestJSONSafeReports_DepthLimit(t *testing.T) {
	var deep any = "bottom"
	for i := 0; i < maxReportDepth+10; i++ {
		deep = []any{deep}
	}

	got := JSONSafeReports([][]any{{deep}})

	v := got[0][0]
	for i := 0; i < maxReportDepth; i++ {
		list, ok := v.([]any)
		require.True(t, ok, "level %d", i)
		v = list[0]
	}
	assert.Equal(t, TruncatedMarker, v)
}

func TestJSONSafeReports_NodeBudget(t *testing.T) {
	// Each level holds the level below twice: copying it in full would
	// visit 2^40 containers.
	var v any = []any{}
	for i := 0; i < 40; i++ {
		v = []any{v, v}
	}

	got := JSONSafeReports([][]any{{v}})

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(out), TruncatedMarker)
}
