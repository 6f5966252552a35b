package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
	"github.com/devicelab-dev/imtest/pkg/executor"
	"github.com/devicelab-dev/imtest/pkg/report"
)

var (
	styleBold   = lipgloss.NewStyle().Bold(true)
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleCyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleGray   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Slow test threshold in milliseconds (5 seconds)
const slowThresholdMs = 5000

// nameWidth is the column width of test names in tables.
const nameWidth = 42

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

// out receives progress and summaries.
var out io.Writer = os.Stdout

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// paint renders s with style when colors are enabled.
func paint(style lipgloss.Style, s string) string {
	if !colorsEnabled {
		return s
	}
	return style.Render(s)
}

// fitName truncates or pads name to exactly width terminal cells.
func fitName(name string, width int) string {
	if runewidth.StringWidth(name) > width {
		name = runewidth.Truncate(name, width, "...")
	}
	return runewidth.FillRight(name, width)
}

// Live progress callbacks, called on the test coroutine.
func onTestStart(idx, total int, t *engine.Test) {
	fmt.Fprintf(out, "  %s %s\n", paint(styleCyan, fmt.Sprintf("[%d/%d]", idx+1, total)), paint(styleBold, t.FullName()))
}

func onTestEnd(idx, total int, t *engine.Test) {
	ms := t.Output.Duration().Milliseconds()
	dur := formatDuration(ms)
	if ms >= slowThresholdMs {
		dur = paint(styleYellow, dur)
	} else {
		dur = paint(styleGray, dur)
	}

	switch t.Output.Status {
	case core.StatusSuccess:
		fmt.Fprintf(out, "    %s %s %s\n", paint(styleGreen, "✓"), t.FullName(), dur)
	case core.StatusError:
		fmt.Fprintf(out, "    %s %s %s\n", paint(styleRed, "✗"), t.FullName(), dur)
		if len(t.Output.Errors) > 0 {
			fmt.Fprintf(out, "      %s %s\n", paint(styleGray, "╰─"), t.Output.Errors[0].Message)
		}
	default:
		fmt.Fprintf(out, "    %s %s (%s)\n", paint(styleCyan, "-"), t.FullName(), t.Output.Status)
	}
}

func printSummary(result *executor.RunResult) {
	fmt.Fprintln(out)
	if result.PassedTests > 0 {
		fmt.Fprintf(out, "  %s (%s)\n", paint(styleGreen, fmt.Sprintf("%d tests passing", result.PassedTests)), formatDuration(result.Duration))
	}
	if result.FailedTests > 0 {
		fmt.Fprintf(out, "  %s\n", paint(styleRed, fmt.Sprintf("%d tests failing", result.FailedTests)))
	}
	if result.SkippedTests > 0 {
		fmt.Fprintf(out, "  %s\n", paint(styleCyan, fmt.Sprintf("%d tests skipped", result.SkippedTests)))
	}
	fmt.Fprintln(out)

	tableWidth := nameWidth + 30
	fmt.Fprintln(out, strings.Repeat("═", tableWidth))
	fmt.Fprintf(out, "  %s %6s %8s %10s\n", fitName("Test", nameWidth), "Status", "Frames", "Duration")
	fmt.Fprintln(out, strings.Repeat("─", tableWidth))

	for _, tr := range result.TestResults {
		fmt.Fprintf(out, "  %s %s %8d %10s\n",
			fitName(tr.Name, nameWidth), statusCell(tr.Status), tr.Frames, formatDuration(tr.Duration))
	}

	fmt.Fprintln(out, strings.Repeat("─", tableWidth))
	total := fmt.Sprintf("%6s", fmt.Sprintf("%d/%d", result.PassedTests, result.TotalTests))
	if result.FailedTests > 0 {
		total = paint(styleRed, total)
	} else {
		total = paint(styleGreen, total)
	}
	fmt.Fprintf(out, "  %s %s %8d %10s\n",
		paint(styleBold, fitName("TOTAL", nameWidth)), total, result.Frames, formatDuration(result.Duration))
	fmt.Fprintln(out, strings.Repeat("═", tableWidth))
}

func statusCell(s report.Status) string {
	switch s {
	case report.StatusPassed:
		return paint(styleGreen, "✓ PASS")
	case report.StatusFailed:
		return paint(styleRed, "✗ FAIL")
	default:
		return paint(styleCyan, "- SKIP")
	}
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
