// Package jsengine runs JavaScript in-process on the goja interpreter.
//
// It implements both execution modes described in package executor:
//
//	Run        units mode: define every discovered function, then call each one
//	RunScript  script mode: evaluate the whole text with a capability set injected
//
// Each call builds its own Scope (and goja.Runtime), so concurrent runs never
// share state. A single run is synchronous: nothing inside it blocks on I/O.
package jsengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"

	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/executor/extract"
)

// Engine implements executor.Executor on top of goja.
type Engine struct {
	config Config
	logger *slog.Logger
}

var _ executor.Executor = (*Engine)(nil)

// New creates an Engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		config: cfg,
		logger: logger,
	}
}

// Run defines and invokes every unit in a fresh scope.
//
// TWO PASSES, NOT ONE:
// Every unit is defined before any unit is called. That is what lets `a`
// call `b` even when `b` appears later in the file, and it is why a later
// duplicate name wins: by the time the invoke pass starts, the last
// successful definition is the one bound.
//
// The returned slice always has len(units) entries, result i belongs to
// unit i. A unit that failed to define keeps its definition error and is not
// called.
func (e *Engine) Run(ctx context.Context, units []extract.Unit) []executor.UnitResult {
	scope := newScope(e.config.MaxCallStackSize)
	stop := scope.interruptOn(ctx)
	defer stop()

	results := make([]executor.UnitResult, len(units))
	defined := make([]bool, len(units))

	// === DEFINING ===
	for i, u := range units {
		if err := scope.Define(u); err != nil {
			results[i] = executor.Failure(&executor.RunError{
				Kind:  executor.KindDefinition,
				Name:  u.Name,
				Cause: causeOf(err),
			})
			e.logger.Debug("unit definition failed",
				slog.String("unit", u.Name),
				slog.String("error", results[i].Output),
			)
			continue
		}
		defined[i] = true
	}

	// === INVOKING ===
	for i, u := range units {
		if !defined[i] {
			continue
		}
		results[i] = scope.Invoke(ctx, u.Name)
	}

	return results
}

// RunScript evaluates src as a single script. Only the capabilities in caps
// (plus the language builtins) are reachable from the script.
//
// There is no per-statement containment here: the first uncaught error stops
// the script and comes back as a *executor.RunError of kind script_failure.
func (e *Engine) RunScript(ctx context.Context, src string, caps executor.Capabilities) error {
	scope := newScope(e.config.MaxCallStackSize)
	stop := scope.interruptOn(ctx)
	defer stop()

	if caps.Report != nil {
		report := func(call goja.FunctionCall) goja.Value {
			values := make([]any, len(call.Arguments))
			for i, arg := range call.Arguments {
				values[i] = arg.Export()
			}
			caps.Report(values...)
			return goja.Undefined()
		}
		if err := scope.Bind("report", report); err != nil {
			return scriptFailure(fmt.Sprintf("injecting report: %v", err))
		}
	}

	if err := ctx.Err(); err != nil {
		return scriptFailure(err.Error())
	}

	if err := scope.Run(src); err != nil {
		return scriptFailure(causeOf(err))
	}
	return nil
}

// Execute runs req in the requested mode. The only error it returns is for
// an unknown mode: failures inside the script are part of the result.
func (e *Engine) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	start := time.Now()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	result := &executor.ExecutionResult{
		Mode:    req.Mode,
		Units:   []string{},
		Results: []executor.UnitResult{},
	}

	switch req.Mode {
	case executor.ModeUnits, "":
		result.Mode = executor.ModeUnits
		units := extract.Extract(req.Code)
		result.Units = extract.Names(units)
		result.Results = e.Run(ctx, units)

	case executor.ModeScript:
		var rec executor.Recorder
		if err := e.RunScript(ctx, req.Code, rec.Capabilities()); err != nil {
			var runErr *executor.RunError
			if !errors.As(err, &runErr) {
				runErr = scriptFailure(err.Error())
			}
			result.Results = append(result.Results, executor.Failure(runErr))
		}
		result.Reports = executor.JSONSafeReports(rec.Calls)

	default:
		return nil, fmt.Errorf("jsengine: %w: %q", executor.ErrUnsupportedMode, req.Mode)
	}

	result.Duration = time.Since(start)

	e.logger.Debug("script executed",
		slog.String("mode", string(result.Mode)),
		slog.Int("units", len(result.Units)),
		slog.Int("failures", countFailures(result.Results)),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

func scriptFailure(cause string) *executor.RunError {
	return &executor.RunError{
		Kind:  executor.KindScript,
		Name:  executor.ScriptPlaceholder,
		Cause: cause,
	}
}

func countFailures(results []executor.UnitResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}
