// Package executor defines the result model shared by every code runner.
//
// There are two ways to run a script:
//
//   - ModeUnits: discover the top-level named functions, define them all in
//     one fresh scope, call each with no arguments, and collect one result per
//     function, in source order.
//   - ModeScript: run the whole text once with a `report` callback injected.
//     Values passed to report() are collected into ExecutionResult.Reports.
//
// Backends (the embedded JS engine, the docker runner) implement Executor.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Mode selects how a script is run.
type Mode string

const (
	ModeUnits  Mode = "units"
	ModeScript Mode = "script"
)

// ScriptPlaceholder is the result name used for ModeScript failures, where
// there is no discovered function to name.
const ScriptPlaceholder = "script"

// ErrUnsupportedMode is returned by backends that only implement one mode.
var ErrUnsupportedMode = errors.New("unsupported execution mode")

// ErrorKind classifies a failed unit. Empty means success.
type ErrorKind string

const (
	KindDefinition   ErrorKind = "definition_failure"
	KindInvocation   ErrorKind = "invocation_failure"
	KindNotAFunction ErrorKind = "not_a_function"
	KindScript       ErrorKind = "script_failure"
)

// RunError is a single failure recorded during a run. Its Error() text is the
// human-readable form shown to users, e.g. "Error defining add: ...".
type RunError struct {
	Kind  ErrorKind
	Name  string
	Cause string
}

func (e *RunError) Error() string {
	switch e.Kind {
	case KindDefinition:
		return fmt.Sprintf("Error defining %s: %s", e.Name, e.Cause)
	case KindInvocation:
		return fmt.Sprintf("Error executing %s: %s", e.Name, e.Cause)
	case KindNotAFunction:
		return fmt.Sprintf("Error: %s is not a function", e.Name)
	default:
		return fmt.Sprintf("Error: %s", e.Cause)
	}
}

// UnitResult is the outcome of one unit. Output holds either the returned
// value rendered as text or the failure message; Kind tells them apart.
type UnitResult struct {
	Name   string    `json:"name"`
	Output string    `json:"output"`
	Kind   ErrorKind `json:"kind,omitempty"`
}

// Failed reports whether the unit produced a failure instead of a value.
func (r UnitResult) Failed() bool {
	return r.Kind != ""
}

// Success builds a result for a unit that returned a value.
func Success(name, output string) UnitResult {
	return UnitResult{Name: name, Output: output}
}

// Failure builds a result from a RunError.
func Failure(err *RunError) UnitResult {
	return UnitResult{Name: err.Name, Output: err.Error(), Kind: err.Kind}
}

// ExecutionRequest represents a request to run a piece of JavaScript.
type ExecutionRequest struct {
	Code string `json:"code"`
	Mode Mode   `json:"mode"`
}

// ExecutionResult is what a run hands back to the caller.
//
// In ModeUnits, Units lists the discovered function names and Results is
// aligned with it index by index. In ModeScript, Results is empty on success
// or holds exactly one script_failure entry, and Reports holds the argument
// lists of every report() call in call order.
type ExecutionResult struct {
	Mode     Mode          `json:"mode"`
	Units    []string      `json:"units"`
	Results  []UnitResult  `json:"results"`
	Reports  [][]any       `json:"reports,omitempty"`
	Stdout   string        `json:"stdout,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Executor represents the core interface for running code.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// Capabilities is the set of host functions injected into a ModeScript run.
// Report receives the exported arguments of each report(...) call.
type Capabilities struct {
	Report func(values ...any)
}

// Recorder collects report() calls. Its Capabilities method returns a set
// suitable for a single run.
type Recorder struct {
	Calls [][]any
}

// Capabilities returns a capability set that appends every call to r.Calls.
func (r *Recorder) Capabilities() Capabilities {
	return Capabilities{
		Report: func(values ...any) {
			r.Calls = append(r.Calls, values)
		},
	}
}
