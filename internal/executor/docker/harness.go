package docker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sakif/js-playground/internal/executor"
)

// Lines starting with these markers carry structured data back from the
// harness. \x1e (record separator) never shows up in ordinary console output.
const (
	reportMarker = "\x1ereport "
	errorMarker  = "\x1eerror "
)

// harness wraps a user script so it runs inside node's vm module with ONLY
// `report` in its global scope, mirroring the in-process engine. Each
// report() call becomes one marked JSON line on stdout; an uncaught error
// becomes one marked line on stderr followed by exit status 1.
//
// The program is fed to `node -` on stdin, so its size is not bound by the
// argument length limit.
const harness = `const vm = require("vm");
const src = %s;
%s
const report = (...values) => {
  process.stdout.write(%q + JSON.stringify(safe(values, [])) + "\n");
};
try {
  vm.runInNewContext(src, { report }, { filename: "script.js" });
} catch (e) {
  const cause = e !== null && typeof e === "object" && e.message !== undefined ? e.message : String(e);
  process.stderr.write(%q + JSON.stringify(String(cause)) + "\n");
  process.exit(1);
}
`

// safeSource defines safe(), which copies reported values the way the
// in-process engine does: NaN and the infinities become strings, functions
// become "[function]", undefined becomes null and a value that contains
// itself becomes "[Circular]".
const safeSource = `const safe = (v, path) => {
  if (v === undefined) return null;
  if (typeof v === "number") return Number.isFinite(v) ? v : String(v);
  if (typeof v === "function") return "[function]";
  if (typeof v === "bigint" || typeof v === "symbol") return String(v);
  if (v === null || typeof v !== "object") return v;
  if (path.length > 100) return "[...]";
  if (path.includes(v)) return "[Circular]";
  path.push(v);
  let out;
  if (Array.isArray(v)) {
    out = v.map((x) => safe(x, path));
  } else {
    out = {};
    for (const [k, x] of Object.entries(v)) out[k] = safe(x, path);
  }
  path.pop();
  return out;
};`

// buildProgram returns the node program that runs code under the harness.
func buildProgram(code string) (string, error) {
	quoted, err := json.Marshal(code)
	if err != nil {
		return "", fmt.Errorf("docker: quoting script: %w", err)
	}
	return fmt.Sprintf(harness, quoted, safeSource, reportMarker, errorMarker), nil
}

// parsed is what we recover from a finished harness run.
type parsed struct {
	reports [][]any
	stdout  string
	cause   string
	failed  bool
}

// parseOutput splits harness stdout/stderr into report calls, plain console
// output and the failure cause, if any.
func parseOutput(stdout, stderr string, exitCode int) parsed {
	var out parsed
	var plain strings.Builder

	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if payload, ok := strings.CutPrefix(line, reportMarker); ok {
			var values []any
			if err := json.Unmarshal([]byte(payload), &values); err == nil {
				out.reports = append(out.reports, values)
				continue
			}
		}
		plain.WriteString(line)
		plain.WriteByte('\n')
	}
	out.stdout = plain.String()

	for _, line := range strings.Split(stderr, "\n") {
		if payload, ok := strings.CutPrefix(line, errorMarker); ok {
			var cause string
			if err := json.Unmarshal([]byte(payload), &cause); err != nil {
				cause = payload
			}
			out.cause = cause
			out.failed = true
			return out
		}
	}

	if exitCode != 0 {
		out.failed = true
		out.cause = strings.TrimSpace(stderr)
		if out.cause == "" {
			out.cause = fmt.Sprintf("script exited with status %d", exitCode)
		}
	}
	return out
}

// toResult converts a parsed run into the shared result model.
func (p parsed) toResult() *executor.ExecutionResult {
	res := &executor.ExecutionResult{
		Mode:    executor.ModeScript,
		Units:   []string{},
		Results: []executor.UnitResult{},
		Reports: p.reports,
		Stdout:  p.stdout,
	}
	if p.failed {
		res.Results = append(res.Results, executor.Failure(&executor.RunError{
			Kind:  executor.KindScript,
			Name:  executor.ScriptPlaceholder,
			Cause: p.cause,
		}))
	}
	return res
}
