package flow

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
)

// maxRunFlowDepth bounds runFlow nesting at run time; the validator rejects
// cycles before anything is registered.
const maxRunFlowDepth = 16

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Register adds f to e as a test. vars override the env defaults declared
// in the flow header.
func Register(e *engine.Engine, f *Flow, vars map[string]string) (*engine.Test, error) {
	group := engine.GroupTests
	if f.Config.Group != "" {
		g, ok := engine.ParseGroup(f.Config.Group)
		if !ok || g == engine.GroupUnknown {
			return nil, &ParseError{Path: f.SourcePath, Message: fmt.Sprintf("unknown group %q", f.Config.Group)}
		}
		group = g
	}

	merged := make(map[string]string, len(f.Config.Env)+len(vars))
	for k, v := range f.Config.Env {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	t := e.RegisterTest(f.TestCategory(), f.TestName())
	t.SourceFile = f.SourcePath
	t.SourceLine = 1
	t.Group = group
	if f.Config.NoWarmUp {
		t.Flags |= core.TestFlagNoGuiWarmUp
	}
	if len(f.Config.Setup) > 0 {
		t.SetupFunc = func(ctx *engine.Context) {
			newRunner(ctx, merged).run(f.Config.Setup, filepath.Dir(f.SourcePath))
		}
	}
	t.TestFunc = func(ctx *engine.Context) {
		r := newRunner(ctx, merged)
		if f.Config.Ref != "" {
			ctx.SetRef(r.expand(f.Config.Ref))
		}
		r.run(f.Steps, filepath.Dir(f.SourcePath))
	}
	return t, nil
}

// runner executes steps against a test Context.
type runner struct {
	ctx   *engine.Context
	vars  map[string]string
	cache map[string]*Flow
	depth int
}

func newRunner(ctx *engine.Context, vars map[string]string) *runner {
	return &runner{ctx: ctx, vars: vars, cache: make(map[string]*Flow)}
}

// expand substitutes ${NAME} with a flow variable; unknown names are kept.
func (r *runner) expand(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := r.vars[m[2:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func (r *runner) expandAll(refs []string) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = r.expand(ref)
	}
	return out
}

func (r *runner) run(steps []Step, dir string) {
	for _, step := range steps {
		if r.ctx.IsError() {
			return
		}
		if label := step.Label(); label != "" {
			r.ctx.LogInfo("%s", label)
		} else {
			r.ctx.LogDebug("%s", step.Describe())
		}
		r.step(step, dir)
	}
}

//nolint:gocyclo
func (r *runner) step(step Step, dir string) {
	ctx := r.ctx
	switch s := step.(type) {
	case *ItemStep:
		r.itemStep(s)

	case *TextStep:
		text := r.expand(s.Text)
		switch s.StepType {
		case StepKeyChars:
			ctx.KeyChars(text)
		case StepKeyCharsAppend:
			ctx.KeyCharsAppend(text)
		case StepKeyCharsAppendEnter:
			ctx.KeyCharsAppendEnter(text)
		case StepKeyCharsReplace:
			ctx.KeyCharsReplace(text)
		case StepKeyCharsReplaceEnter:
			ctx.KeyCharsReplaceEnter(text)
		case StepLogInfo:
			ctx.LogInfo("%s", text)
		}

	case *KeyStep:
		if s.StepType == StepKeyHold {
			ctx.KeyHold(s.Chord, s.Seconds)
		} else {
			ctx.KeyPress(s.Chord, max(s.Count, 1))
		}

	case *MouseStep:
		if s.StepType == StepMouseClickOnVoid {
			ctx.MouseClickOnVoid(s.Btn)
		} else {
			ctx.MouseClickMulti(s.Btn, max(s.Count, 1))
		}

	case *PointStep:
		ref := r.expand(s.Ref)
		switch s.StepType {
		case StepWindowMove:
			ctx.WindowMove(ref, s.Vec())
		case StepWindowResize:
			ctx.WindowResize(ref, s.Vec())
		case StepItemDragDelta:
			ctx.ItemDragWithDelta(ref, s.Vec())
		case StepMouseMoveToPos:
			ctx.MouseMoveToPos(s.Vec())
		case StepMouseWheel:
			ctx.MouseWheel(s.Vec())
		}

	case *PairStep:
		from, to := r.expand(s.From), r.expand(s.To)
		switch s.StepType {
		case StepItemDragAndDrop:
			ctx.ItemDragAndDrop(from, to, s.Btn)
		case StepItemDragOver:
			ctx.ItemDragOverAndHold(from, to)
		case StepDockInto:
			ctx.DockInto(from, to)
		}

	case *HoldStep:
		if s.Frames > 0 {
			ctx.ItemHoldForFrames(r.expand(s.Ref), s.Frames)
		} else {
			ctx.ItemHold(r.expand(s.Ref), s.Seconds)
		}

	case *RefsStep:
		ctx.DockClear(r.expandAll(s.Refs)...)

	case *ScreenshotStep:
		name := r.expand(s.Name)
		if name == "" {
			name = "screenshot"
		}
		if !ctx.CaptureScreenshot(name, r.expandAll(s.Refs)...) && !s.Optional {
			ctx.Errorf("Failed to capture screenshot %q", name)
		}

	case *ActionAllStep:
		filter := &engine.ActionFilter{
			MaxDepth:              s.MaxDepth,
			MaxPasses:             s.MaxPasses,
			RequireAllStatusFlags: s.All,
			RequireAnyStatusFlags: s.Any,
		}
		n := ctx.ItemActionAll(s.Act, r.expand(s.Parent), filter)
		if s.Expect != nil {
			ctx.CheckEqual(n, *s.Expect, s.Describe())
		}

	case *FramesStep:
		ctx.YieldFrames(s.Count)

	case *SleepStep:
		ctx.Sleep(s.Seconds)

	case *RepeatStep:
		for i := 0; i < s.Times && !ctx.IsError(); i++ {
			r.run(s.Steps, dir)
		}

	case *RunFlowStep:
		r.runFlow(s, dir)

	case *SimpleStep:
		switch s.StepType {
		case StepYield:
			ctx.Yield()
		case StepPopupCloseOne:
			ctx.PopupCloseOne()
		case StepPopupCloseAll:
			ctx.PopupCloseAll()
		case StepMouseMoveToVoid:
			ctx.MouseMoveToVoid()
		case StepNavActivate:
			ctx.NavActivate()
		case StepNavCancel:
			ctx.NavCancel()
		}

	default:
		ctx.Errorf("Unsupported step %T", step)
	}
}

//nolint:gocyclo
func (r *runner) itemStep(s *ItemStep) {
	ctx := r.ctx
	ref := r.expand(s.Ref)
	ops := s.Ops
	if s.Optional {
		ops |= core.OpNoError
	}

	switch s.StepType {
	case StepItemClick:
		ctx.ItemClick(ref, ops)
	case StepItemDoubleClick:
		ctx.ItemDoubleClick(ref, ops)
	case StepItemCheck:
		ctx.ItemCheck(ref, ops)
	case StepItemUncheck:
		ctx.ItemUncheck(ref, ops)
	case StepItemOpen:
		ctx.ItemOpen(ref, ops)
	case StepItemClose:
		ctx.ItemClose(ref, ops)
	case StepItemInput:
		ctx.ItemInput(ref, ops)
	case StepItemNavActivate:
		ctx.ItemNavActivate(ref, ops)
	case StepItemHover:
		ctx.ItemAction(core.ActionHover, ref, ops)
	case StepMouseMove:
		ctx.MouseMove(ref, ops)
	case StepSetRef:
		ctx.SetRef(ref)
	case StepMenuClick:
		ctx.MenuClick(ref)
	case StepMenuCheck:
		ctx.MenuCheck(ref)
	case StepMenuUncheck:
		ctx.MenuUncheck(ref)
	case StepComboClick:
		ctx.ComboClick(ref)
	case StepComboClickAll:
		ctx.ComboClickAll(ref)
	case StepTabClose:
		ctx.TabClose(ref)
	case StepWindowFocus:
		ctx.WindowFocus(ref)
	case StepWindowClose:
		ctx.WindowClose(ref)
	case StepWindowCollapse:
		ctx.WindowCollapse(ref, true)
	case StepWindowExpand:
		ctx.WindowCollapse(ref, false)
	case StepScrollToItem:
		ctx.ScrollToItemY(ref)
	case StepScrollToTop:
		ctx.ScrollToTop(ref)
	case StepScrollToBottom:
		ctx.ScrollToBottom(ref)
	case StepNavMoveTo:
		ctx.NavMoveTo(ref)

	case StepAssertExists:
		r.assert(s, ctx.ItemExists(ref))
	case StepAssertNotExists:
		r.assert(s, !ctx.ItemExists(ref))
	case StepAssertChecked, StepAssertUnchecked, StepAssertOpened, StepAssertClosed:
		info := ctx.ItemInfo(ref, ops)
		if info == nil {
			if s.Optional {
				ctx.LogWarning("%s: item not found", s.Describe())
			}
			return
		}
		var ok bool
		switch s.StepType {
		case StepAssertChecked:
			ok = info.StatusFlags.Has(core.ItemStatusChecked)
		case StepAssertUnchecked:
			ok = !info.StatusFlags.Has(core.ItemStatusChecked)
		case StepAssertOpened:
			ok = info.StatusFlags.Has(core.ItemStatusOpened)
		case StepAssertClosed:
			ok = !info.StatusFlags.Has(core.ItemStatusOpened)
		}
		r.assert(s, ok)
	}
}

// assert fails the test unless ok; optional assertions only warn.
func (r *runner) assert(s *ItemStep, ok bool) {
	if s.Optional {
		if !ok {
			r.ctx.LogWarning("%s failed (optional)", s.Describe())
		}
		return
	}
	r.ctx.Check(ok, s.Describe())
}

func (r *runner) runFlow(s *RunFlowStep, dir string) {
	ctx := r.ctx
	if r.depth >= maxRunFlowDepth {
		ctx.Errorf("runFlow nested deeper than %d levels", maxRunFlowDepth)
		return
	}

	child := &runner{ctx: ctx, vars: r.vars, cache: r.cache, depth: r.depth + 1}
	if len(s.Env) > 0 {
		child.vars = make(map[string]string, len(r.vars)+len(s.Env))
		for k, v := range r.vars {
			child.vars[k] = v
		}
		for k, v := range s.Env {
			child.vars[k] = r.expand(v)
		}
	}

	if s.File != "" {
		path := resolveFilePath(dir, r.expand(s.File))
		f, ok := r.cache[path]
		if !ok {
			var err error
			if f, err = ParseFile(path); err != nil {
				if s.Optional {
					ctx.LogWarning("runFlow %s: %v", s.File, err)
				} else {
					ctx.Errorf("runFlow %s: %v", s.File, err)
				}
				return
			}
			r.cache[path] = f
		}
		child.run(f.Steps, filepath.Dir(path))
	}
	child.run(s.Steps, dir)
}

func resolveFilePath(baseDir, filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(baseDir, filePath)
}
