package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/imtest/pkg/config"
	"github.com/devicelab-dev/imtest/pkg/logger"
	"github.com/devicelab-dev/imtest/pkg/report"
)

// captureOutput redirects progress output, disables colors and keeps
// exit codes from terminating the test binary.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevColors, prevExiter := out, colorsEnabled, cli.OsExiter
	out, colorsEnabled = &buf, false
	cli.OsExiter = func(code int) { t.Logf("exit(%d)", code) }
	t.Cleanup(func() { out, colorsEnabled, cli.OsExiter = prevOut, prevColors, prevExiter })
	return &buf
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

const passingScript = `
imtest.test("click", function (ctx) {
	ctx.setRef("Demo");
	ctx.itemClick("Click Me");
	ctx.check(ctx.itemExists("Enabled"), "checkbox exists");
});
`

func TestResolveOutputDir_Default(t *testing.T) {
	home := t.TempDir()
	t.Setenv("IMTEST_HOME", home)
	config.ResetHome()
	t.Cleanup(config.ResetHome)

	dir, err := resolveOutputDir("", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(dir) != filepath.Join(home, "reports") {
		t.Errorf("expected <home>/reports/<timestamp>, got %s", dir)
	}
}

func TestResolveOutputDir_CustomOutput(t *testing.T) {
	dir, err := resolveOutputDir("./my-reports", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(dir, "my-reports/") {
		t.Errorf("expected dir to start with my-reports/, got %s", dir)
	}
}

func TestResolveOutputDir_Flatten(t *testing.T) {
	dir, err := resolveOutputDir("./my-reports", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir != "my-reports" {
		t.Errorf("expected my-reports, got %s", dir)
	}
}

func TestResolveOutputDir_FlattenWithoutOutput(t *testing.T) {
	_, err := resolveOutputDir("", true)
	if err == nil {
		t.Fatal("expected error when flatten is used without output")
	}

	if !strings.Contains(err.Error(), "--flatten requires --output") {
		t.Errorf("expected error about --flatten requiring --output, got: %v", err)
	}
}

func TestParseEnvVars_Valid(t *testing.T) {
	envs := []string{"USER=test", "PASS=secret", "EMPTY="}
	result := parseEnvVars(envs)

	if result["USER"] != "test" {
		t.Errorf("expected USER=test, got %s", result["USER"])
	}
	if result["PASS"] != "secret" {
		t.Errorf("expected PASS=secret, got %s", result["PASS"])
	}
	if v, ok := result["EMPTY"]; !ok || v != "" {
		t.Errorf("expected EMPTY='', got %q (present=%v)", v, ok)
	}
}

func TestParseEnvVars_ValueWithEquals(t *testing.T) {
	result := parseEnvVars([]string{"URL=http://x?a=b"})
	if result["URL"] != "http://x?a=b" {
		t.Errorf("expected value with '=', got %s", result["URL"])
	}
}

func TestParseEnvVars_InvalidFormat(t *testing.T) {
	result := parseEnvVars([]string{"NOVALUE"})
	if len(result) != 0 {
		t.Errorf("expected empty map, got %v", result)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{999, "999ms"},
		{1500, "1.5s"},
		{59999, "60.0s"},
		{61000, "1m 1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFitName(t *testing.T) {
	if got := fitName("short", 8); got != "short   " {
		t.Errorf("fitName pad = %q", got)
	}
	// Wide runes count two cells each; the 7-cell truncation is padded to 8.
	got := fitName("日本語テスト", 8)
	if got != "日本... " {
		t.Errorf("fitName wide = %q", got)
	}
}

func TestPaint_Disabled(t *testing.T) {
	captureOutput(t)
	if got := paint(styleRed, "x"); got != "x" {
		t.Errorf("expected plain text, got %q", got)
	}
}

func TestGlobalFlags(t *testing.T) {
	names := map[string]bool{}
	for _, f := range GlobalFlags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"config", "verbose", "log-file", "save-log", "no-ansi"} {
		if !names[want] {
			t.Errorf("missing global flag %q", want)
		}
	}
}

func TestDetectCI(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_RUN_ID", "42")
	t.Setenv("GITHUB_SERVER_URL", "https://github.com")
	t.Setenv("GITHUB_REPOSITORY", "acme/app")
	t.Setenv("GITHUB_SHA", "abc")

	ci := detectCI()
	if ci == nil || ci.Provider != "github" {
		t.Fatalf("detectCI() = %+v", ci)
	}
	if ci.BuildURL != "https://github.com/acme/app/actions/runs/42" {
		t.Errorf("BuildURL = %s", ci.BuildURL)
	}
	if ci.Commit != "abc" {
		t.Errorf("Commit = %s", ci.Commit)
	}
}

func TestExpandScriptArg(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.js", passingScript)
	writeScript(t, dir, "b.js", passingScript)
	writeScript(t, dir, "c.yaml", "- yield\n")
	writeScript(t, dir, "notes.txt", "")

	files, err := expandScriptArg(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("expected 3 scripts, got %v", files)
	}

	if _, err := expandScriptArg(t.TempDir()); err == nil {
		t.Error("expected error for a directory without scripts")
	}
	if _, err := expandScriptArg(filepath.Join(dir, "missing.js")); err == nil {
		t.Error("expected error for a missing script")
	}
}

func TestRunCommand_WritesReport(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "smoke.js", passingScript)
	outDir := filepath.Join(dir, "out")

	app := NewApp()
	err := app.Run([]string{"imtest", "run", "--output", outDir, "--flatten", "--junit", script})
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, buf.String())
	}

	index, details, err := report.Load(outDir)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if index.Summary.Total != 1 || index.Summary.Passed != 1 {
		t.Errorf("summary = %+v", index.Summary)
	}
	if len(details) != 1 || details[0].Category != "smoke" || details[0].Name != "click" {
		t.Errorf("details = %+v", details)
	}
	if _, err := os.Stat(filepath.Join(outDir, "junit.xml")); err != nil {
		t.Errorf("junit.xml missing: %v", err)
	}
	if !strings.Contains(buf.String(), "smoke/click") || !strings.Contains(buf.String(), "1 tests passing") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestSplitScripts(t *testing.T) {
	scripts, flows := splitScripts([]string{"a.js", "tests/imtest.yaml", "b.yml", "c.yaml", "d.mjs"})
	if strings.Join(scripts, ",") != "a.js,d.mjs" {
		t.Errorf("scripts = %v", scripts)
	}
	if strings.Join(flows, ",") != "b.yml,c.yaml" {
		t.Errorf("flows = %v", flows)
	}
}

func TestRunCommand_Flows(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	writeScript(t, dir, "open.yaml", `
name: open
category: menus
ref: Demo
tags: [smoke]
---
- menuClick: File/Open
- assertExists: Enabled
`)
	writeScript(t, dir, "slow.yaml", "tags: [slow]\n---\n- yieldFrames: 600\n")
	outDir := filepath.Join(dir, "out")

	app := NewApp()
	err := app.Run([]string{"imtest", "run", "--output", outDir, "--flatten", "--exclude-tags", "slow", dir})
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, buf.String())
	}

	index, details, err := report.Load(outDir)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if index.Summary.Total != 1 || index.Summary.Passed != 1 {
		t.Errorf("summary = %+v", index.Summary)
	}
	if len(details) != 1 || details[0].Category != "menus" || details[0].Name != "open" {
		t.Errorf("details = %+v", details)
	}
}

func TestRunCommand_InvalidFlow(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	flowPath := writeScript(t, dir, "bad.yaml", "- tapOn: Login\n")

	app := NewApp()
	err := app.Run([]string{"imtest", "run", "--no-report", flowPath})
	if err == nil || !strings.Contains(err.Error(), "invalid test file") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRunCommand_ConfigScriptsAndEnv(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	writeScript(t, dir, "env.js", `
imtest.test("env", function (ctx) {
	ctx.checkEqual(TARGET, "demo", "TARGET");
});
`)
	cfgPath := filepath.Join(dir, "imtest.yaml")
	cfgYAML := "scripts: [\"*.js\"]\nrunSpeed: run-fast\nenv:\n  TARGET: wrong\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	app := NewApp()
	err := app.Run([]string{"imtest", "--config", cfgPath, "run", "--no-report", "-e", "TARGET=demo"})
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "env/env") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestRunCommand_NoMatchingTests(t *testing.T) {
	captureOutput(t)
	app := NewApp()
	err := app.Run([]string{"imtest", "run", "--no-report", "--filter", "nothing-matches-this"})
	if err == nil || !strings.Contains(err.Error(), "no test matches") {
		t.Errorf("expected no-match error, got %v", err)
	}
}

func TestRunCommand_BadSpeed(t *testing.T) {
	captureOutput(t)
	app := NewApp()
	err := app.Run([]string{"imtest", "run", "--no-report", "--speed", "warp"})
	if err == nil || !strings.Contains(err.Error(), "warp") {
		t.Errorf("expected speed error, got %v", err)
	}
}

func TestRunCommand_WatchRequiresScripts(t *testing.T) {
	captureOutput(t)
	app := NewApp()
	err := app.Run([]string{"imtest", "run", "--no-report", "--watch"})
	if err == nil || !strings.Contains(err.Error(), "--watch requires") {
		t.Errorf("expected watch error, got %v", err)
	}
}

func TestSaveLogWritesUnderHome(t *testing.T) {
	captureOutput(t)
	home := t.TempDir()
	t.Setenv("IMTEST_HOME", home)
	config.ResetHome()
	t.Cleanup(config.ResetHome)
	t.Cleanup(logger.Close)

	if err := NewApp().Run([]string{"imtest", "--save-log", "list"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(home, "logs"))
	if err != nil {
		t.Fatalf("logs dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "imtest_") {
		t.Errorf("expected one imtest_*.log, got %v", entries)
	}
}

func TestListCommand(t *testing.T) {
	buf := captureOutput(t)
	app := NewApp()
	if err := app.Run([]string{"imtest", "list"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"widgets/checkbox", "perf/idle_frames", "menus/file"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("list output missing %s:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := app.Run([]string{"imtest", "list", "--group", "perfs"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if strings.Contains(buf.String(), "widgets/checkbox") || !strings.Contains(buf.String(), "1 tests") {
		t.Errorf("perfs listing:\n%s", buf.String())
	}
}

func TestListCommand_Scripts(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "menus.js", passingScript)

	app := NewApp()
	if err := app.Run([]string{"imtest", "list", script}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(buf.String(), "menus/click") || !strings.Contains(buf.String(), "menus.js:2") {
		t.Errorf("list output:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "widgets/checkbox") {
		t.Errorf("builtin suite listed without --builtin:\n%s", buf.String())
	}
}

func TestListCommand_FlowTags(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	writeScript(t, dir, "a.yaml", "tags: [smoke]\n---\n- yield\n")
	writeScript(t, dir, "b.yaml", "tags: [slow]\n---\n- yield\n")

	app := NewApp()
	if err := app.Run([]string{"imtest", "list", "--include-tags", "smoke", dir}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(buf.String(), "flows/a") || strings.Contains(buf.String(), "flows/b") {
		t.Errorf("list output:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "a.yaml:1") {
		t.Errorf("flow source missing:\n%s", buf.String())
	}
}

func TestScriptWatcher(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "watched.js", passingScript)
	other := writeScript(t, dir, "other.txt", "")

	w, err := newScriptWatcher([]string{script})
	if err != nil {
		t.Fatalf("newScriptWatcher: %v", err)
	}
	defer w.Close()

	// Changes to other files are ignored.
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(script, []byte(passingScript+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-w.Events:
		if filepath.Base(name) != "watched.js" {
			t.Errorf("event for %s, want watched.js", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change event")
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := NewApp()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "run,list" {
		t.Errorf("commands = %v", names)
	}
}
