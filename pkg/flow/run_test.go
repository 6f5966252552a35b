package flow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/demo"
	"github.com/devicelab-dev/imtest/pkg/engine"
	"github.com/devicelab-dev/imtest/pkg/headless"
)

type harness struct {
	t   *testing.T
	ui  *headless.Context
	e   *engine.Engine
	app *demo.App
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, ui: headless.New(), e: engine.New(), dir: t.TempDir()}
	h.e.IO.ConfigRunSpeed = core.RunSpeedFast
	h.e.IO.ConfigFixedDeltaTime = 1.0 / 60.0
	h.e.IO.ExitFunc = func(code int) { t.Errorf("unexpected exit(%d)", code) }
	h.ui.SetHooks(h.e)
	if err := h.e.Start(h.ui); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(h.e.Stop)
	h.app = demo.New(h.ui)
	h.app.Reset()
	return h
}

// register writes content to name under the harness directory and
// registers it.
func (h *harness) register(name, content string, vars map[string]string) *engine.Test {
	h.t.Helper()
	path := h.write(name, content)
	f, err := ParseFile(path)
	if err != nil {
		h.t.Fatalf("ParseFile() error = %v", err)
	}
	tst, err := Register(h.e, f, vars)
	if err != nil {
		h.t.Fatalf("Register() error = %v", err)
	}
	return tst
}

func (h *harness) write(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

func (h *harness) run() {
	h.t.Helper()
	if n := h.e.QueueTests(engine.GroupUnknown, "", core.RunFlagNone); n == 0 {
		h.t.Fatal("no tests queued")
	}
	n := h.ui.RunFrames(100000, h.app.Draw, func() bool { return !h.e.IsRunningTests() })
	if n >= 100000 {
		h.t.Fatal("tests did not finish")
	}
	h.ui.Frame(h.app.Draw)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	tst := h.register("widgets.yaml", "- yield\n", nil)
	if tst.FullName() != "flows/widgets" {
		t.Errorf("FullName() = %q, want flows/widgets", tst.FullName())
	}
	if tst.Group != engine.GroupTests || tst.SourceLine != 1 {
		t.Errorf("group = %v line = %d", tst.Group, tst.SourceLine)
	}
	if !strings.HasSuffix(tst.SourceFile, "widgets.yaml") {
		t.Errorf("SourceFile = %q", tst.SourceFile)
	}
	if h.e.FindTest("flows/widgets") == nil {
		t.Error("test not registered in engine")
	}

	perf := h.register("perf.yaml", "name: idle\ncategory: perf\ngroup: perfs\nnoWarmUp: true\n---\n- yieldFrames: 5\n", nil)
	if perf.Group != engine.GroupPerfs || !perf.Flags.Has(core.TestFlagNoGuiWarmUp) {
		t.Errorf("perf test = group %v flags %v", perf.Group, perf.Flags)
	}
}

func TestRegister_BadGroup(t *testing.T) {
	h := newHarness(t)
	for _, group := range []string{"bench", "all"} {
		f := &Flow{SourcePath: "g.yaml", Config: Config{Group: group}}
		if _, err := Register(h.e, f, nil); err == nil {
			t.Errorf("Register() with group %q: expected error", group)
		}
	}
}

func TestRun_DrivesDemo(t *testing.T) {
	h := newHarness(t)
	h.write("common/tabs.yaml", `
- tabClose: Tabs/Stats
- logInfo: "closed by ${WHO}"
`)
	tst := h.register("main.yaml", `
name: tour
ref: Demo
env:
  USER: bob
  WHO: main
---
- itemCheck: Enabled
- assertChecked: Enabled
- itemInput: Name
- keyCharsReplaceEnter: "${USER}"
- menuClick: File/Open
- comboClick: Fruit/Cherry
- repeat:
    times: 2
    commands:
      - itemClick: Click Me
- runFlow:
    file: common/tabs.yaml
    env:
      WHO: nested
- itemOpen: Settings
- itemActionAll:
    action: open
    parent: Settings
    expect: 2
- assertOpened: Settings/Video
- assertNotExists: Missing
- itemClick:
    ref: Missing
    optional: true
`, map[string]string{"USER": "alice"})

	h.run()

	if tst.Output.Status != core.StatusSuccess {
		t.Fatalf("status = %v, log:\n%s", tst.Output.Status, tst.Output.Log.String())
	}
	st := h.app.State
	if !st.Enabled || st.Name != "alice" || st.Opened != 1 || st.Fruit != 2 || st.Clicks != 2 {
		t.Errorf("unexpected state: %+v", st)
	}
	if st.ShowStats {
		t.Error("expected Stats tab closed by nested flow")
	}
	if !tst.Output.Log.Contains("closed by nested") {
		t.Errorf("nested env missing from log:\n%s", tst.Output.Log.String())
	}
}

func TestRun_AssertionFailure(t *testing.T) {
	h := newHarness(t)
	failing := h.register("failing.yaml", `
ref: Demo
---
- assertChecked: Enabled
- itemCheck: Enabled
`, nil)
	optional := h.register("optional.yaml", `
ref: Demo
---
- assertChecked:
    ref: Enabled
    optional: true
- assertExists:
    ref: Nowhere
    optional: true
`, nil)

	h.run()

	if failing.Output.Status != core.StatusError {
		t.Errorf("failing status = %v, want error", failing.Output.Status)
	}
	if h.app.State.Enabled {
		t.Error("steps after a failed assertion must not run")
	}
	if optional.Output.Status != core.StatusSuccess {
		t.Errorf("optional status = %v, log:\n%s", optional.Output.Status, optional.Output.Log.String())
	}
	if !optional.Output.Log.Contains("failed (optional)") {
		t.Errorf("optional warning missing:\n%s", optional.Output.Log.String())
	}
}

func TestRun_SetupAndLabels(t *testing.T) {
	h := newHarness(t)
	tst := h.register("setup.yaml", `
setup:
  - logInfo: preparing
---
- yieldFrames:
    count: 3
    label: settle
`, nil)

	h.run()

	if tst.Output.Status != core.StatusSuccess {
		t.Fatalf("status = %v, log:\n%s", tst.Output.Status, tst.Output.Log.String())
	}
	for _, want := range []string{"preparing", "settle"} {
		if !tst.Output.Log.Contains(want) {
			t.Errorf("log missing %q:\n%s", want, tst.Output.Log.String())
		}
	}
}

func TestRun_MissingRunFlow(t *testing.T) {
	h := newHarness(t)
	tst := h.register("broken.yaml", "- runFlow: nope.yaml\n", nil)
	soft := h.register("soft.yaml", "- runFlow:\n    file: nope.yaml\n    optional: true\n", nil)

	h.run()

	if tst.Output.Status != core.StatusError {
		t.Errorf("status = %v, want error", tst.Output.Status)
	}
	if soft.Output.Status != core.StatusSuccess {
		t.Errorf("optional runFlow status = %v, want success", soft.Output.Status)
	}
}

func TestRunner_Expand(t *testing.T) {
	r := &runner{vars: map[string]string{"A": "1", "NAME": "x"}}
	tests := map[string]string{
		"${A}-${NAME}": "1-x",
		"${MISSING}":   "${MISSING}",
		"$A costs $5":  "$A costs $5",
		"plain":        "plain",
	}
	for in, want := range tests {
		if got := r.expand(in); got != want {
			t.Errorf("expand(%q) = %q, want %q", in, got, want)
		}
	}
}
