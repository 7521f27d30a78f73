package docker

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/executor/jsengine"
)

func TestBuildProgram(t *testing.T) {
	program, err := buildProgram("report(\"a\\\"b\");\n`x`")
	require.NoError(t, err)

	assert.Contains(t, program, `vm.runInNewContext(src, { report }`)
	assert.Contains(t, program, `const src = "report(\"a\\\"b\");\n`+"`x`"+`";`)
	assert.Contains(t, program, `"\x1ereport "`)
	assert.Contains(t, program, `"\x1eerror "`)
	assert.Contains(t, program, safeSource)
	assert.Contains(t, program, `JSON.stringify(safe(values, []))`)
}

// TestSafeMatchesEngine runs safe() under goja and checks that each report
// line serializes the same way the in-process engine does.
func TestSafeMatchesEngine(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	engine := jsengine.New(jsengine.DefaultConfig(), logger)

	scripts := map[string]string{
		"non-finite numbers": `report(0/0, 1/0, -1/0, [NaN]);`,
		"functions":          `report(function f() {}, { g: () => 1 });`,
		"undefined and null": `report(undefined, null, "s", true, 1.5);`,
		"self reference":     `const a = { n: 1 }; a.self = a; report(a);`,
		"list cycle":         `const l = [1]; l.push(l); report(l);`,
		"shared value":       `const s = { k: 1 }; report([s, s]);`,
		"deep nesting":       `let v = 0; for (let i = 0; i < 120; i++) v = [v]; report(v);`,
	}

	for name, src := range scripts {
		t.Run(name, func(t *testing.T) {
			res, err := engine.Execute(context.Background(), executor.ExecutionRequest{Code: src, Mode: executor.ModeScript})
			require.NoError(t, err)
			want, err := json.Marshal(res.Reports)
			require.NoError(t, err)

			vm := goja.New()
			_, err = vm.RunString(safeSource + `
var lines = [];
var report = (...values) => { lines.push(JSON.stringify(safe(values, []))); };
`)
			require.NoError(t, err)
			_, err = vm.RunString(src)
			require.NoError(t, err)

			var lines []string
			require.NoError(t, vm.ExportTo(vm.Get("lines"), &lines))

			assert.JSONEq(t, string(want), "["+strings.Join(lines, ",")+"]")
		})
	}
}

func TestStopCause(t *testing.T) {
	assert.NoError(t, stopCause(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := stopCause(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseOutput(t *testing.T) {
	t.Run("reports and plain output", func(t *testing.T) {
		stdout := reportMarker + "[[1,2,3]]\nhello\n" + reportMarker + "[\"a\",true]\n"

		p := parseOutput(stdout, "", 0)

		assert.False(t, p.failed)
		assert.Equal(t, [][]any{{[]any{1.0, 2.0, 3.0}}, {"a", true}}, p.reports)
		assert.Equal(t, "hello\n", p.stdout)
	})

	t.Run("error marker wins over exit status", func(t *testing.T) {
		stderr := "some warning\n" + errorMarker + "\"boom is not defined\"\n"

		p := parseOutput(reportMarker+"[1]\n", stderr, 1)

		assert.True(t, p.failed)
		assert.Equal(t, "boom is not defined", p.cause)
		assert.Equal(t, [][]any{{1.0}}, p.reports)
	})

	t.Run("unmarked failure falls back to stderr", func(t *testing.T) {
		p := parseOutput("", "  node: out of memory \n", 134)

		assert.True(t, p.failed)
		assert.Equal(t, "node: out of memory", p.cause)
	})

	t.Run("silent failure reports the status", func(t *testing.T) {
		p := parseOutput("", "", 2)

		assert.True(t, p.failed)
		assert.Equal(t, "script exited with status 2", p.cause)
	})

	t.Run("malformed report line is kept as output", func(t *testing.T) {
		p := parseOutput(reportMarker+"{not json\n", "", 0)

		assert.Empty(t, p.reports)
		assert.Equal(t, reportMarker+"{not json\n", p.stdout)
	})
}

func TestParsedToResult(t *testing.T) {
	ok := parsed{reports: [][]any{{"x"}}}.toResult()
	assert.Equal(t, executor.ModeScript, ok.Mode)
	assert.Empty(t, ok.Results)
	assert.Equal(t, [][]any{{"x"}}, ok.Reports)

	failed := parsed{failed: true, cause: "nope"}.toResult()
	require.Len(t, failed.Results, 1)
	assert.Equal(t, "script", failed.Results[0].Name)
	assert.Equal(t, "Error: nope", failed.Results[0].Output)
	assert.Equal(t, executor.KindScript, failed.Results[0].Kind)
}
