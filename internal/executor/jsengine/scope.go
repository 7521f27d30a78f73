package jsengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/executor/extract"
)

// Scope is the set of name bindings for ONE run.
//
// Every Scope owns a brand new goja.Runtime, so nothing a script does (global
// assignments, prototype patching, redefined builtins) can leak into another
// run. Discovered functions are bound as globals of that runtime, so a body
// can call a sibling by name; the bindings set remembers which names were
// defined. A unit that overwrites a sibling's global (`b = 5`) really does
// replace it for the rest of the run.
type Scope struct {
	vm       *goja.Runtime
	bindings map[string]struct{}

	// Captured before any user code runs, so a unit named "Function" or
	// "String" cannot break definition or rendering.
	construct goja.Value
	toString  goja.Callable
}

func newScope(maxCallStack int) *Scope {
	vm := goja.New()
	if maxCallStack > 0 {
		vm.SetMaxCallStackSize(maxCallStack)
	}

	toString, _ := goja.AssertFunction(vm.Get("String"))

	return &Scope{
		vm:        vm,
		bindings:  make(map[string]struct{}),
		construct: vm.Get("Function"),
		toString:  toString,
	}
}

// interruptOn stops whatever the runtime is executing once ctx is done.
// The returned func releases the watcher.
func (s *Scope) interruptOn(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		s.vm.Interrupt(ctx.Err())
	})
}

// Define compiles the unit with the Function constructor, the same way
// `new Function(...params, body)` would, and binds the result under its name.
// On failure nothing is bound, so an earlier binding of the same name stays.
func (s *Scope) Define(u extract.Unit) error {
	args := make([]goja.Value, 0, len(u.Params)+1)
	for _, p := range u.Params {
		args = append(args, s.vm.ToValue(p))
	}
	args = append(args, s.vm.ToValue(u.Body))

	fn, err := s.vm.New(s.construct, args...)
	if err != nil {
		return err
	}
	return s.Bind(u.Name, fn)
}

// Bind makes value reachable under name for the rest of the run.
func (s *Scope) Bind(name string, value any) error {
	if err := s.vm.Set(name, value); err != nil {
		return err
	}
	s.bindings[name] = struct{}{}
	return nil
}

// Lookup returns the callable currently bound to name. It fails if name was
// never defined in this scope or no longer holds a function.
func (s *Scope) Lookup(name string) (goja.Callable, bool) {
	if _, ok := s.bindings[name]; !ok {
		return nil, false
	}
	v := s.vm.Get(name)
	if v == nil {
		return nil, false
	}
	return goja.AssertFunction(v)
}

// Invoke calls the function bound to name with no arguments and renders the
// return value with String(), exactly like `String(fn())`.
func (s *Scope) Invoke(ctx context.Context, name string) (res executor.UnitResult) {
	fn, ok := s.Lookup(name)
	if !ok {
		return executor.Failure(&executor.RunError{Kind: executor.KindNotAFunction, Name: name})
	}

	if err := ctx.Err(); err != nil {
		return invocationFailure(name, err.Error())
	}

	// A panic from inside the runtime must not take the other units down.
	defer func() {
		if r := recover(); r != nil {
			res = invocationFailure(name, fmt.Sprint(r))
		}
	}()

	value, err := fn(goja.Undefined())
	if err != nil {
		return invocationFailure(name, causeOf(err))
	}

	text, err := s.render(value)
	if err != nil {
		return invocationFailure(name, causeOf(err))
	}
	return executor.Success(name, text)
}

// Run evaluates src as one script.
func (s *Scope) Run(src string) error {
	_, err := s.vm.RunString(src)
	return err
}

func (s *Scope) render(v goja.Value) (string, error) {
	if v == nil {
		v = goja.Undefined()
	}
	out, err := s.toString(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

func invocationFailure(name, cause string) executor.UnitResult {
	return executor.Failure(&executor.RunError{Kind: executor.KindInvocation, Name: name, Cause: cause})
}

// causeOf turns a runtime error into the text a user would see as e.message.
// Thrown values that are not Error objects are rendered with String().
func causeOf(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		val := ex.Value()
		if val == nil {
			return ex.Error()
		}
		if obj, ok := val.(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				return msg.String()
			}
		}
		return val.String()
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprint(interrupted.Value())
	}

	return err.Error()
}
