package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// stepKind groups step types that decode into the same struct.
type stepKind int

const (
	kindSimple stepKind = iota
	kindItem
	kindText
	kindKey
	kindMouse
	kindPoint
	kindPair
	kindHold
	kindRefs
	kindScreenshot
	kindActionAll
	kindFrames
	kindSleep
	kindRepeat
	kindRunFlow
)

var stepKinds = map[StepType]stepKind{
	StepItemClick:       kindItem,
	StepItemDoubleClick: kindItem,
	StepItemCheck:       kindItem,
	StepItemUncheck:     kindItem,
	StepItemOpen:        kindItem,
	StepItemClose:       kindItem,
	StepItemInput:       kindItem,
	StepItemNavActivate: kindItem,
	StepItemHover:       kindItem,
	StepSetRef:          kindItem,
	StepMenuClick:       kindItem,
	StepMenuCheck:       kindItem,
	StepMenuUncheck:     kindItem,
	StepComboClick:      kindItem,
	StepComboClickAll:   kindItem,
	StepTabClose:        kindItem,
	StepWindowFocus:     kindItem,
	StepWindowClose:     kindItem,
	StepWindowCollapse:  kindItem,
	StepWindowExpand:    kindItem,
	StepScrollToItem:    kindItem,
	StepScrollToTop:     kindItem,
	StepScrollToBottom:  kindItem,
	StepMouseMove:       kindItem,
	StepNavMoveTo:       kindItem,
	StepAssertExists:    kindItem,
	StepAssertNotExists: kindItem,
	StepAssertChecked:   kindItem,
	StepAssertUnchecked: kindItem,
	StepAssertOpened:    kindItem,
	StepAssertClosed:    kindItem,

	StepKeyChars:             kindText,
	StepKeyCharsAppend:       kindText,
	StepKeyCharsAppendEnter:  kindText,
	StepKeyCharsReplace:      kindText,
	StepKeyCharsReplaceEnter: kindText,
	StepLogInfo:              kindText,

	StepKeyPress: kindKey,
	StepKeyHold:  kindKey,

	StepMouseClick:       kindMouse,
	StepMouseClickOnVoid: kindMouse,

	StepWindowMove:     kindPoint,
	StepWindowResize:   kindPoint,
	StepItemDragDelta:  kindPoint,
	StepMouseMoveToPos: kindPoint,
	StepMouseWheel:     kindPoint,

	StepItemDragAndDrop: kindPair,
	StepItemDragOver:    kindPair,
	StepDockInto:        kindPair,

	StepItemHold:          kindHold,
	StepDockClear:         kindRefs,
	StepCaptureScreenshot: kindScreenshot,
	StepItemActionAll:     kindActionAll,
	StepYieldFrames:       kindFrames,
	StepSleep:             kindSleep,
	StepRepeat:            kindRepeat,
	StepRunFlow:           kindRunFlow,

	StepYield:           kindSimple,
	StepPopupCloseOne:   kindSimple,
	StepPopupCloseAll:   kindSimple,
	StepMouseMoveToVoid: kindSimple,
	StepNavActivate:     kindSimple,
	StepNavCancel:       kindSimple,
}

// ParseFile parses a single YAML test file.
func ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided test file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses YAML test content.
func Parse(data []byte, sourcePath string) (*Flow, error) {
	parts := splitYAMLDocuments(string(data))

	flow := &Flow{
		SourcePath: sourcePath,
	}

	if len(parts) == 0 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    1,
			Message: "empty flow file",
		}
	}

	if len(parts) == 1 {
		if err := parseSteps(parts[0], flow); err != nil {
			return nil, err
		}
	} else {
		if err := parseConfig(parts[0], flow); err != nil {
			return nil, err
		}
		if err := parseSteps(parts[1], flow); err != nil {
			return nil, err
		}
	}

	return flow, nil
}

// splitYAMLDocuments splits on "---" lines that are not inside a block scalar.
func splitYAMLDocuments(content string) []string {
	var parts []string
	var current strings.Builder
	inMultiline := false
	multilineIndent := 0

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inMultiline {
			if strings.HasSuffix(trimmed, "|") || strings.HasSuffix(trimmed, ">") ||
				strings.HasSuffix(trimmed, "|-") || strings.HasSuffix(trimmed, ">-") {
				inMultiline = true
				if i+1 < len(lines) {
					next := lines[i+1]
					multilineIndent = len(next) - len(strings.TrimLeft(next, " \t"))
				}
			}
		} else {
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if trimmed != "" && indent < multilineIndent {
				inMultiline = false
			}
		}

		if !inMultiline && trimmed == "---" && strings.TrimLeft(line, " \t") == "---" {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		} else {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	if current.Len() > 0 {
		s := strings.TrimSpace(current.String())
		if s != "" {
			parts = append(parts, current.String())
		}
	}

	return parts
}

func parseConfig(content string, flow *Flow) error {
	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return &ParseError{
			Path:    flow.SourcePath,
			Message: fmt.Sprintf("invalid config: %v", err),
		}
	}

	var rawConfig struct {
		Setup []yaml.Node `yaml:"setup"`
	}
	if err := yaml.Unmarshal([]byte(content), &rawConfig); err != nil {
		return &ParseError{
			Path:    flow.SourcePath,
			Message: fmt.Sprintf("invalid config: %v", err),
		}
	}

	for _, node := range rawConfig.Setup {
		step, err := parseStep(&node, flow.SourcePath)
		if err != nil {
			return err
		}
		config.Setup = append(config.Setup, step)
	}

	flow.Config = config
	return nil
}

func parseSteps(content string, flow *Flow) error {
	var rawSteps []yaml.Node
	if err := yaml.Unmarshal([]byte(content), &rawSteps); err != nil {
		return &ParseError{
			Path:    flow.SourcePath,
			Message: fmt.Sprintf("invalid steps: %v", err),
		}
	}

	for _, node := range rawSteps {
		step, err := parseStep(&node, flow.SourcePath)
		if err != nil {
			return err
		}
		flow.Steps = append(flow.Steps, step)
	}

	return nil
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	// Handle scalar nodes like "- navActivate" (no colon, no params)
	if node.Kind == yaml.ScalarNode {
		stepType := node.Value
		if !isStepType(stepType) {
			return nil, &ParseError{
				Path:    sourcePath,
				Line:    node.Line,
				Message: fmt.Sprintf("unknown step type: %s", stepType),
			}
		}
		emptyNode := &yaml.Node{Kind: yaml.MappingNode, Line: node.Line}
		return decodeStep(StepType(stepType), emptyNode, sourcePath)
	}

	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a mapping or command name",
		}
	}

	stepType, valueNode := extractStepType(node)
	if stepType == "" || valueNode == nil {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "unknown step type",
		}
	}

	return decodeStep(StepType(stepType), valueNode, sourcePath)
}

func extractStepType(node *yaml.Node) (string, *yaml.Node) {
	for i := 0; i < len(node.Content)-1; i += 2 {
		key := node.Content[i].Value
		if isStepType(key) {
			return key, node.Content[i+1]
		}
	}
	return "", nil
}

func isStepType(key string) bool {
	_, ok := stepKinds[StepType(key)]
	return ok
}

//nolint:gocyclo
func decodeStep(stepType StepType, valueNode *yaml.Node, sourcePath string) (Step, error) {
	// "- navActivate:" decodes to a null scalar
	if valueNode.Kind == yaml.ScalarNode && valueNode.Tag == "!!null" {
		valueNode = &yaml.Node{Kind: yaml.MappingNode, Line: valueNode.Line}
	}
	fail := func(format string, args ...any) error {
		return &ParseError{Path: sourcePath, Line: valueNode.Line, Message: fmt.Sprintf(format, args...)}
	}
	scalar := valueNode.Kind == yaml.ScalarNode

	switch stepKinds[stepType] {
	case kindItem:
		var s ItemStep
		if scalar {
			s.Ref = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.Ref == "" && stepType != StepSetRef {
			return nil, fail("%s requires a ref", stepType)
		}
		for _, name := range s.Flags {
			f, ok := core.ParseOpFlag(name)
			if !ok {
				return nil, fail("unknown op flag %q", name)
			}
			s.Ops |= f
		}
		return &s, nil

	case kindText:
		var s TextStep
		if scalar {
			s.Text = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case kindKey:
		var s KeyStep
		if scalar {
			s.Key = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		chord, err := core.ParseKeyChord(s.Key)
		if err != nil {
			return nil, fail("%v", err)
		}
		s.Chord = chord
		if stepType == StepKeyHold && s.Seconds <= 0 {
			return nil, fail("keyHold requires seconds")
		}
		return &s, nil

	case kindMouse:
		var s MouseStep
		if scalar {
			s.Button = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		btn, ok := core.ParseMouseButton(s.Button)
		if !ok {
			return nil, fail("unknown mouse button %q", s.Button)
		}
		s.Btn = btn
		return &s, nil

	case kindPoint:
		var s PointStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.Ref == "" && stepType != StepMouseMoveToPos && stepType != StepMouseWheel {
			return nil, fail("%s requires a ref", stepType)
		}
		return &s, nil

	case kindPair:
		var s PairStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.From == "" || s.To == "" {
			return nil, fail("%s requires from and to", stepType)
		}
		btn, ok := core.ParseMouseButton(s.Button)
		if !ok {
			return nil, fail("unknown mouse button %q", s.Button)
		}
		s.Btn = btn
		return &s, nil

	case kindHold:
		var s HoldStep
		if scalar {
			s.Ref = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.Ref == "" {
			return nil, fail("%s requires a ref", stepType)
		}
		return &s, nil

	case kindRefs:
		var s RefsStep
		switch valueNode.Kind {
		case yaml.ScalarNode:
			s.Refs = []string{valueNode.Value}
		case yaml.SequenceNode:
			if err := valueNode.Decode(&s.Refs); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		default:
			if err := valueNode.Decode(&s); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		}
		s.StepType = stepType
		return &s, nil

	case kindScreenshot:
		var s ScreenshotStep
		if scalar {
			s.Name = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case kindActionAll:
		return parseActionAllStep(valueNode, sourcePath)

	case kindFrames:
		var s FramesStep
		if scalar {
			if err := valueNode.Decode(&s.Count); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.Count <= 0 {
			return nil, fail("yieldFrames requires a positive count")
		}
		return &s, nil

	case kindSleep:
		var s SleepStep
		if scalar {
			if err := valueNode.Decode(&s.Seconds); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case kindRepeat:
		return parseRepeatStep(valueNode, sourcePath)

	case kindRunFlow:
		return parseRunFlowStep(valueNode, sourcePath)

	default:
		var s SimpleStep
		if !scalar {
			if err := valueNode.Decode(&s); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		}
		s.StepType = stepType
		return &s, nil
	}
}

// parseActionAllStep resolves action and status names up front.
func parseActionAllStep(valueNode *yaml.Node, sourcePath string) (Step, error) {
	var s ActionAllStep
	if err := valueNode.Decode(&s); err != nil {
		return nil, wrapParseError(sourcePath, valueNode.Line, err)
	}
	s.StepType = StepItemActionAll

	act, ok := core.ParseAction(s.Action)
	if !ok {
		return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: fmt.Sprintf("unknown action %q", s.Action)}
	}
	s.Act = act

	parse := func(names []string) (core.ItemStatusFlags, error) {
		var f core.ItemStatusFlags
		for _, name := range names {
			bit, ok := core.ParseItemStatus(name)
			if !ok {
				return 0, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: fmt.Sprintf("unknown status flag %q", name)}
			}
			f |= bit
		}
		return f, nil
	}
	var err error
	if s.All, err = parse(s.RequireAll); err != nil {
		return nil, err
	}
	if s.Any, err = parse(s.RequireAny); err != nil {
		return nil, err
	}
	return &s, nil
}

// parseRepeatStep handles repeat with nested commands.
func parseRepeatStep(valueNode *yaml.Node, sourcePath string) (Step, error) {
	var raw struct {
		Times    int         `yaml:"times"`
		Commands []yaml.Node `yaml:"commands"`
		Optional bool        `yaml:"optional"`
		Label    string      `yaml:"label"`
	}

	if err := valueNode.Decode(&raw); err != nil {
		return nil, wrapParseError(sourcePath, valueNode.Line, err)
	}
	if raw.Times < 0 {
		return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: "repeat times must not be negative"}
	}

	s := &RepeatStep{
		BaseStep: BaseStep{
			StepType:  StepRepeat,
			Optional:  raw.Optional,
			StepLabel: raw.Label,
		},
		Times: raw.Times,
	}

	for _, cmdNode := range raw.Commands {
		step, err := parseStep(&cmdNode, sourcePath)
		if err != nil {
			return nil, err
		}
		s.Steps = append(s.Steps, step)
	}

	return s, nil
}

// parseRunFlowStep handles runFlow with optional nested commands.
func parseRunFlowStep(valueNode *yaml.Node, sourcePath string) (Step, error) {
	s := &RunFlowStep{BaseStep: BaseStep{StepType: StepRunFlow}}

	if valueNode.Kind == yaml.ScalarNode {
		s.File = valueNode.Value
		return s, nil
	}

	var raw struct {
		File     string            `yaml:"file"`
		Commands []yaml.Node       `yaml:"commands"`
		Env      map[string]string `yaml:"env"`
		Optional bool              `yaml:"optional"`
		Label    string            `yaml:"label"`
	}

	if err := valueNode.Decode(&raw); err != nil {
		return nil, wrapParseError(sourcePath, valueNode.Line, err)
	}

	s.File = raw.File
	s.Env = raw.Env
	s.Optional = raw.Optional
	s.StepLabel = raw.Label

	for _, cmdNode := range raw.Commands {
		step, err := parseStep(&cmdNode, sourcePath)
		if err != nil {
			return nil, err
		}
		s.Steps = append(s.Steps, step)
	}

	if s.File == "" && len(s.Steps) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: "runFlow requires a file or commands"}
	}

	return s, nil
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{
		Path:    path,
		Line:    line,
		Message: err.Error(),
	}
}

// IsFlowFile reports whether path has a YAML extension.
func IsFlowFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ParseDirectory parses all YAML files in a directory.
func ParseDirectory(dir string, includeTags, excludeTags []string) ([]*Flow, error) {
	var flows []*Flow

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !IsFlowFile(path) {
			return nil
		}

		flow, err := ParseFile(path)
		if err != nil {
			return err
		}

		if ShouldIncludeFlow(flow, includeTags, excludeTags) {
			flows = append(flows, flow)
		}
		return nil
	})

	return flows, err
}

// ShouldIncludeFlow checks if a flow matches tag filters.
func ShouldIncludeFlow(flow *Flow, includeTags, excludeTags []string) bool {
	if len(includeTags) > 0 {
		hasTag := false
		for _, tag := range flow.Config.Tags {
			for _, include := range includeTags {
				if tag == include {
					hasTag = true
					break
				}
			}
		}
		if !hasTag {
			return false
		}
	}

	for _, tag := range flow.Config.Tags {
		for _, exclude := range excludeTags {
			if tag == exclude {
				return false
			}
		}
	}

	return true
}
