package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/imtest/pkg/engine"
)

var listCommand = &cli.Command{
	Name:      "list",
	Usage:     "List registered tests without running them",
	ArgsUsage: "[script.js|flow.yaml|dir]...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Comma-separated test filter",
		},
		&cli.StringFlag{
			Name:  "group",
			Usage: "Test group: tests, perfs or all",
			Value: "all",
		},
		&cli.BoolFlag{
			Name:  "builtin",
			Usage: "Include the built-in demo suite when scripts are given",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only list flows with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip flows with these tags",
		},
	},
	Action: listTests,
}

func listTests(c *cli.Context) error {
	ws, baseDir, err := loadWorkspace(getString(c, "config"))
	if err != nil {
		return err
	}
	scripts, err := ws.ResolveScripts(baseDir)
	if err != nil {
		return err
	}
	for _, arg := range c.Args().Slice() {
		expanded, err := expandScriptArg(arg)
		if err != nil {
			return err
		}
		scripts = append(scripts, expanded...)
	}

	ws.Group = c.String("group")
	group, err := ws.TestGroup()
	if err != nil {
		return err
	}

	cfg := &RunConfig{
		Scripts:     scripts,
		Builtin:     len(scripts) == 0 || c.Bool("builtin"),
		Env:         ws.Env,
		IncludeTags: ws.IncludeTags,
		ExcludeTags: ws.ExcludeTags,
		Workspace:   ws,
	}
	if c.IsSet("include-tags") {
		cfg.IncludeTags = c.StringSlice("include-tags")
	}
	if c.IsSet("exclude-tags") {
		cfg.ExcludeTags = c.StringSlice("exclude-tags")
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	count := 0
	for _, t := range s.engine.Tests() {
		if !t.PassFilter(c.String("filter")) {
			continue
		}
		if group != engine.GroupUnknown && t.Group != group {
			continue
		}
		source := ""
		if t.SourceFile != "" {
			source = filepath.Base(t.SourceFile)
			if t.SourceLine > 0 {
				source += ":" + strconv.Itoa(t.SourceLine)
			}
		}
		fmt.Fprintf(out, "  %s %-6s %s\n", fitName(t.FullName(), nameWidth), t.Group, paint(styleGray, source))
		count++
	}
	fmt.Fprintf(out, "\n  %d tests\n", count)
	return nil
}
