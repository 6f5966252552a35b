package jsengine

import (
	"errors"
	"strings"
	"testing"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
	"github.com/devicelab-dev/imtest/pkg/headless"
)

func TestNew(t *testing.T) {
	js := New(nil)
	defer js.Close()

	if js == nil {
		t.Fatal("expected engine to be created")
	}
	if js.runtime == nil {
		t.Fatal("expected runtime to be initialized")
	}
}

func TestEval(t *testing.T) {
	js := New(nil)
	defer js.Close()

	tests := []struct {
		name     string
		script   string
		expected interface{}
	}{
		{"simple number", "1 + 2", int64(3)},
		{"string concat", "'hello' + ' ' + 'world'", "hello world"},
		{"boolean", "true && false", false},
		{"null coalescing", "null ?? 'default'", "default"},
		{"array length", "[1, 2, 3].length", int64(3)},
		{"object property", "({name: 'test'}).name", "test"},
		{"imtest version", "imtest.version", Version},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := js.Eval(tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, result, result)
			}
		})
	}
}

func TestSetVariable(t *testing.T) {
	js := New(nil)
	defer js.Close()

	js.SetVariable("username", "john")
	js.SetVariable("count", 42)

	result, err := js.EvalString("username")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "john" {
		t.Errorf("expected 'john', got %q", result)
	}

	result, err = js.EvalString("count")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "42" {
		t.Errorf("expected '42', got %q", result)
	}
}

func TestSetVariables(t *testing.T) {
	js := New(nil)
	defer js.Close()

	js.SetVariables(map[string]string{"HOST": "ci", "LANG": "en"})

	result, err := js.EvalString("`${HOST}-${LANG}`")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ci-en" {
		t.Errorf("expected 'ci-en', got %q", result)
	}
}

func TestConsoleLog(t *testing.T) {
	js := New(nil)
	defer js.Close()

	// Outside a test, console goes to the process logger.
	err := js.RunScript(`
		console.log("test message");
		console.error("error message");
		console.warn("warning message");
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSON(t *testing.T) {
	js := New(nil)
	defer js.Close()

	err := js.RunScript(`
		var data = json('{"name": "test", "value": 123}');
		parsedName = data.name;
		parsedValue = data.value;
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, _ := js.EvalString("parsedName")
	if name != "test" {
		t.Errorf("expected 'test', got %q", name)
	}

	value, _ := js.EvalString("parsedValue")
	if value != "123" {
		t.Errorf("expected '123', got %q", value)
	}
}

func TestOutput(t *testing.T) {
	js := New(nil)
	defer js.Close()

	err := js.RunScript(`
		output.result = "success";
		output.count = 42;
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := js.GetOutput()
	if output["result"] != "success" {
		t.Errorf("expected output.result = 'success', got %v", output["result"])
	}
	if output["count"] != int64(42) {
		t.Errorf("expected output.count = 42, got %v", output["count"])
	}
}

func TestArrowFunctions(t *testing.T) {
	js := New(nil)
	defer js.Close()

	result, err := js.Eval(`
		const add = (a, b) => a + b;
		add(2, 3);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(5) {
		t.Errorf("expected 5, got %v", result)
	}
}

func TestRunScriptError(t *testing.T) {
	js := New(nil)
	defer js.Close()

	if err := js.RunScript("invalid javascript {{{{"); err == nil {
		t.Error("expected error for invalid javascript")
	}
}

func TestEvalError(t *testing.T) {
	js := New(nil)
	defer js.Close()

	if _, err := js.Eval("undefinedVariable.property"); err == nil {
		t.Error("expected error for undefined variable")
	}
}

// harness binds a JS engine to a test engine and a headless GUI.
type harness struct {
	t     *testing.T
	ui    *headless.Context
	e     *engine.Engine
	js    *Engine
	check bool
	name  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, ui: headless.New(), e: engine.New()}
	h.e.IO.ConfigRunSpeed = core.RunSpeedFast
	h.e.IO.ConfigFixedDeltaTime = 1.0 / 60.0
	h.e.IO.ExitFunc = func(code int) { t.Errorf("unexpected exit(%d)", code) }
	h.ui.SetHooks(h.e)
	if err := h.e.Start(h.ui); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(h.e.Stop)
	h.js = New(h.e)
	t.Cleanup(h.js.Close)
	return h
}

func (h *harness) draw() {
	if h.ui.Begin("App", nil, core.WindowFlagNone) {
		h.ui.Checkbox("Enabled", &h.check)
		h.ui.InputText("Name", &h.name)
		if h.ui.Button("Reset") {
			h.check = false
			h.name = ""
		}
	}
	h.ui.End()
}

func (h *harness) run() {
	h.t.Helper()
	if n := h.e.QueueTests(engine.GroupUnknown, "", core.RunFlagNone); n == 0 {
		h.t.Fatal("no tests queued")
	}
	n := h.ui.RunFrames(5000, h.draw, func() bool { return !h.e.IsRunningTests() })
	if n >= 5000 {
		h.t.Fatal("tests did not finish")
	}
	h.ui.Frame(h.draw)
}

func TestLoad_RegistersTests(t *testing.T) {
	h := newHarness(t)

	err := h.js.Load("scripts/widgets.js", `
imtest.registerTest("widgets", "checkbox", function (ctx) {});
imtest.test("perf", function (ctx) {}, {group: "perfs", noWarmUp: true});
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := h.js.Tests()
	if len(tests) != 2 {
		t.Fatalf("len(Tests()) = %d, want 2", len(tests))
	}
	if tests[0].FullName() != "widgets/checkbox" {
		t.Errorf("FullName() = %q, want widgets/checkbox", tests[0].FullName())
	}
	if tests[0].SourceFile != "scripts/widgets.js" || tests[0].SourceLine != 2 {
		t.Errorf("source = %s:%d, want scripts/widgets.js:2", tests[0].SourceFile, tests[0].SourceLine)
	}
	if tests[1].Category != "widgets" || tests[1].Group != engine.GroupPerfs {
		t.Errorf("second test = %s group %v", tests[1].FullName(), tests[1].Group)
	}
	if !tests[1].Flags.Has(core.TestFlagNoGuiWarmUp) {
		t.Error("expected noWarmUp flag")
	}
	if h.e.FindTest("widgets/checkbox") == nil {
		t.Error("test not registered in engine")
	}
}

func TestLoad_Errors(t *testing.T) {
	h := newHarness(t)

	if err := h.js.Load("empty.js", "var x = 1;"); !errors.Is(err, core.ErrUnknownTest) {
		t.Errorf("Load(no tests) error = %v, want ErrUnknownTest", err)
	}
	if err := h.js.Load("broken.js", "imtest.test("); err == nil {
		t.Error("expected compile error")
	}
	err := h.js.Load("group.js", `imtest.test("x", function () {}, {group: "nope"});`)
	if err == nil || !strings.Contains(err.Error(), "unknown group") {
		t.Errorf("Load(bad group) error = %v", err)
	}
}

func TestLoad_WithoutTarget(t *testing.T) {
	js := New(nil)
	defer js.Close()

	if err := js.Load("x.js", `imtest.test("a", function () {});`); err == nil {
		t.Error("expected error without a bound engine")
	}
}

func TestRun_DrivesGUI(t *testing.T) {
	h := newHarness(t)

	err := h.js.Load("widgets.js", `
imtest.test("edit", function (ctx) {
	ctx.setRef("App");
	ctx.itemCheck("Enabled");
	ctx.check(ctx.itemIsChecked("Enabled"), "checked");
	ctx.itemInput("Name");
	ctx.keyCharsReplaceEnter("alice");
	const info = ctx.itemInfo("Enabled");
	ctx.checkEqual(info.checked, true, "info.checked");
	ctx.checkEqual(ctx.itemInfo("Missing"), null, "missing info");
	console.log("frames", ctx.frameCount());
});
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	h.run()

	tst := h.js.Tests()[0]
	if tst.Output.Status != core.StatusSuccess {
		t.Fatalf("status = %v, log:\n%s", tst.Output.Status, tst.Output.Log.String())
	}
	if !h.check {
		t.Error("checkbox not checked")
	}
	if h.name != "alice" {
		t.Errorf("name = %q, want alice", h.name)
	}
	if !strings.Contains(tst.Output.Log.String(), "frames") {
		t.Errorf("console output missing from test log:\n%s", tst.Output.Log.String())
	}
}

func TestRun_ScriptExceptionFailsTest(t *testing.T) {
	h := newHarness(t)

	err := h.js.Load("fail.js", `
imtest.test("throws", function (ctx) {
	ctx.setRef("App");
	throw new Error("boom");
});
imtest.test("bad key", function (ctx) {
	ctx.keyPress("Ctrl+Nope");
});
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	h.run()

	for _, tst := range h.js.Tests() {
		if tst.Output.Status != core.StatusError {
			t.Errorf("%s status = %v, want error", tst.Name, tst.Output.Status)
		}
		if !strings.Contains(tst.Output.Log.String(), "Script error") {
			t.Errorf("%s log missing script error:\n%s", tst.Name, tst.Output.Log.String())
		}
	}
	if !strings.Contains(h.js.Tests()[0].Output.Log.String(), "boom") {
		t.Error("exception message not logged")
	}
}

func TestRun_ItemActionAllWithFilter(t *testing.T) {
	h := newHarness(t)

	err := h.js.Load("all.js", `
imtest.test("check all", function (ctx) {
	ctx.setRef("App");
	const n = ctx.itemActionAll("check", "", {requireAll: ["checkable"]});
	ctx.checkEqual(n, 1, "count");
});
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	h.run()

	tst := h.js.Tests()[0]
	if tst.Output.Status != core.StatusSuccess {
		t.Fatalf("status = %v, log:\n%s", tst.Output.Status, tst.Output.Log.String())
	}
	if !h.check {
		t.Error("checkbox not checked")
	}
}
