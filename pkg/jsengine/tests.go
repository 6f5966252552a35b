package jsengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
)

// Version is reported to scripts as imtest.version.
const Version = "1.0.0"

// imtestObject returns the imtest global object
func (e *Engine) imtestObject() *goja.Object {
	obj := e.runtime.NewObject()
	obj.Set("version", Version)

	// imtest.registerTest(category, name, fn, [options])
	obj.Set("registerTest", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 3 {
			panic(e.runtime.NewTypeError("registerTest requires category, name and function"))
		}
		category := call.Arguments[0].String()
		name := call.Arguments[1].String()
		fn, ok := goja.AssertFunction(call.Arguments[2])
		if !ok {
			panic(e.runtime.NewTypeError("registerTest: third argument must be a function"))
		}
		var opts goja.Value
		if len(call.Arguments) > 3 {
			opts = call.Arguments[3]
		}
		e.register(category, name, fn, opts)
		return goja.Undefined()
	})

	// imtest.test(name, fn, [options]) registers under the script name.
	obj.Set("test", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(e.runtime.NewTypeError("test requires name and function"))
		}
		fn, ok := goja.AssertFunction(call.Arguments[1])
		if !ok {
			panic(e.runtime.NewTypeError("test: second argument must be a function"))
		}
		var opts goja.Value
		if len(call.Arguments) > 2 {
			opts = call.Arguments[2]
		}
		e.register(scriptCategory(e.script), call.Arguments[0].String(), fn, opts)
		return goja.Undefined()
	})

	return obj
}

// testOptions are read from the optional last argument of registerTest.
type testOptions struct {
	Group      string
	NoWarmUp   bool
	ArgVariant int
}

func (e *Engine) register(category, name string, fn goja.Callable, optsVal goja.Value) {
	if e.target == nil {
		panic(e.runtime.NewGoError(fmt.Errorf("cannot register %s/%s: no test engine bound", category, name)))
	}

	var opts testOptions
	if optsVal != nil && !goja.IsUndefined(optsVal) && !goja.IsNull(optsVal) {
		obj := optsVal.ToObject(e.runtime)
		if v := obj.Get("group"); v != nil && !goja.IsUndefined(v) {
			opts.Group = v.String()
		}
		if v := obj.Get("noWarmUp"); v != nil {
			opts.NoWarmUp = v.ToBoolean()
		}
		if v := obj.Get("argVariant"); v != nil && !goja.IsUndefined(v) {
			opts.ArgVariant = int(v.ToInteger())
		}
	}

	t := e.target.RegisterTest(category, name)
	t.SourceFile = e.script
	for _, f := range e.runtime.CaptureCallStack(0, nil) {
		if line := f.Position().Line; line > 0 {
			t.SourceLine = line
			break
		}
	}
	if opts.Group != "" {
		g, ok := engine.ParseGroup(opts.Group)
		if !ok {
			panic(e.runtime.NewTypeError(fmt.Sprintf("unknown group %q", opts.Group)))
		}
		t.Group = g
	}
	if opts.NoWarmUp {
		t.Flags |= core.TestFlagNoGuiWarmUp
	}
	t.ArgVariant = opts.ArgVariant
	t.TestFunc = e.testFunc(fn)
	e.tests = append(e.tests, t)
}

// testFunc adapts a JS function to an engine TestFunc. The runtime stays
// locked while the test runs; the frame driver never enters it.
func (e *Engine) testFunc(fn goja.Callable) engine.TestFunc {
	return func(ctx *engine.Context) {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.current = ctx
		defer func() { e.current = nil }()

		if _, err := fn(goja.Undefined(), e.contextObject(ctx)); err != nil {
			if ex, ok := err.(*goja.Exception); ok {
				ctx.Errorf("Script error: %s", strings.TrimSpace(ex.String()))
				return
			}
			ctx.Errorf("Script error: %v", err)
		}
	}
}

// Load runs a script source, registering its tests. name is used for
// error positions and as the category of imtest.test.
func (e *Engine) Load(name, src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}

	e.script = name
	defer func() { e.script = "" }()
	before := len(e.tests)
	if _, err := e.runtime.RunProgram(prog); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	if len(e.tests) == before {
		return fmt.Errorf("load %s: %w", name, core.ErrUnknownTest.WithMessage("script registers no test"))
	}
	return nil
}

// LoadFile reads and loads one script file.
func (e *Engine) LoadFile(path string) error {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided test script
	if err != nil {
		return err
	}
	return e.Load(path, string(data))
}

// LoadFiles loads scripts in order and stops at the first error.
func (e *Engine) LoadFiles(paths []string) error {
	for _, p := range paths {
		if err := e.LoadFile(p); err != nil {
			return err
		}
	}
	return nil
}

// scriptCategory derives a category from a script path: "tests/menu.js"
// becomes "menu".
func scriptCategory(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
