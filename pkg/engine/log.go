package engine

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// LogLine locates one line inside TestLog.Buffer.
type LogLine struct {
	Level core.VerboseLevel
	Start int
	End   int // Exclusive, not including the trailing newline
}

// TestLog is the severity-tagged log attached to each test.
type TestLog struct {
	Buffer        strings.Builder
	Lines         []LogLine
	CountPerLevel [core.VerboseCount]int
}

// Clear empties the log.
func (l *TestLog) Clear() {
	l.Buffer.Reset()
	l.Lines = l.Lines[:0]
	l.CountPerLevel = [core.VerboseCount]int{}
}

// Add appends text, one LogLine per line of text.
func (l *TestLog) Add(level core.VerboseLevel, text string) {
	text = strings.TrimRight(text, "\n")
	for _, line := range strings.Split(text, "\n") {
		start := l.Buffer.Len()
		l.Buffer.WriteString(line)
		l.Lines = append(l.Lines, LogLine{Level: level, Start: start, End: l.Buffer.Len()})
		l.Buffer.WriteByte('\n')
		if level >= 0 && level < core.VerboseCount {
			l.CountPerLevel[level]++
		}
	}
}

// Line returns the text of line n.
func (l *TestLog) Line(n int) string {
	ln := l.Lines[n]
	return l.Buffer.String()[ln.Start:ln.End]
}

// String returns the whole log.
func (l *TestLog) String() string {
	return l.Buffer.String()
}

// Contains reports whether any line contains substr.
func (l *TestLog) Contains(substr string) bool {
	return strings.Contains(l.Buffer.String(), substr)
}

// Extract returns the lines whose level lies in [min, max], newline
// terminated.
func (l *TestLog) Extract(min, max core.VerboseLevel) string {
	var b strings.Builder
	for n, ln := range l.Lines {
		if ln.Level < min || ln.Level > max {
			continue
		}
		b.WriteString(l.Line(n))
		b.WriteByte('\n')
	}
	return b.String()
}

// ExtractTruncated is like Extract but cuts each line to width display
// columns, for terminal output.
func (l *TestLog) ExtractTruncated(min, max core.VerboseLevel, width int) string {
	var b strings.Builder
	for n, ln := range l.Lines {
		if ln.Level < min || ln.Level > max {
			continue
		}
		b.WriteString(runewidth.Truncate(l.Line(n), width, "..."))
		b.WriteByte('\n')
	}
	return b.String()
}

// formatLogLine builds the "[0042]   message" form used for every line.
func formatLogLine(frame, depth int, format string, args ...any) string {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return fmt.Sprintf("[%04d] %s%s", frame, strings.Repeat("  ", depth), msg)
}
