package report

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// JUnit XML structures. Each test category becomes a test suite.
type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Skipped  int          `xml:"skipped,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	File      string        `xml:"file,attr,omitempty"`
	Line      int           `xml:"line,attr,omitempty"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// Load reads report.json and every test detail file of a report directory.
func Load(reportDir string) (*Index, []TestDetail, error) {
	var index Index
	if err := readJSON(filepath.Join(reportDir, "report.json"), &index); err != nil {
		return nil, nil, fmt.Errorf("read index: %w", err)
	}
	details := make([]TestDetail, len(index.Tests))
	for i, t := range index.Tests {
		if err := readJSON(filepath.Join(reportDir, t.DataFile), &details[i]); err != nil {
			return nil, nil, fmt.Errorf("read test %s: %w", t.ID, err)
		}
	}
	return &index, details, nil
}

// GenerateJUnit writes junit.xml into reportDir from the JSON report.
func GenerateJUnit(reportDir string) error {
	index, details, err := Load(reportDir)
	if err != nil {
		return err
	}
	data, err := buildJUnit(index, details)
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(reportDir, "junit.xml"), data)
}

func buildJUnit(index *Index, details []TestDetail) ([]byte, error) {
	root := junitSuites{Name: "imtest"}
	suites := map[string]*junitSuite{}
	suiteMs := map[string]int64{}
	var order []string
	var totalMs int64

	for i, entry := range index.Tests {
		s, ok := suites[entry.Category]
		if !ok {
			s = &junitSuite{Name: entry.Category}
			suites[entry.Category] = s
			order = append(order, entry.Category)
		}
		var ms int64
		if entry.Duration != nil {
			ms = *entry.Duration
		}
		totalMs += ms
		suiteMs[entry.Category] += ms

		c := junitCase{
			Name:      entry.Name,
			Classname: entry.Category,
			File:      entry.SourceFile,
			Line:      entry.SourceLine,
			Time:      seconds(ms),
		}
		detail := details[i]
		switch entry.Status {
		case StatusFailed:
			c.Failure = junitFailureOf(detail)
			s.Failures++
			root.Failures++
		case StatusSkipped, StatusPending:
			c.Skipped = &junitSkipped{Message: "not run"}
			s.Skipped++
			root.Skipped++
		}
		c.SystemOut = logText(detail.Log)

		s.Cases = append(s.Cases, c)
		s.Tests++
		root.Tests++
	}

	sort.Strings(order)
	for _, name := range order {
		s := suites[name]
		s.Time = seconds(suiteMs[name])
		root.Suites = append(root.Suites, *s)
	}
	root.Time = seconds(totalMs)

	out, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal junit: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func junitFailureOf(d TestDetail) *junitFailure {
	f := &junitFailure{Type: "error", Message: "test failed"}
	if len(d.Errors) == 0 {
		return f
	}
	first := d.Errors[0]
	f.Type = first.Type
	f.Message = first.Message
	var b strings.Builder
	for _, e := range d.Errors {
		if e.File != "" {
			fmt.Fprintf(&b, "%s:%d: ", e.File, e.Line)
		}
		fmt.Fprintf(&b, "[%s] %s\n", e.Code, e.Message)
	}
	f.Body = b.String()
	return f
}

func logText(log []LogEntry) string {
	var b strings.Builder
	for _, l := range log {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func seconds(ms int64) string {
	return fmt.Sprintf("%.3f", float64(ms)/1000)
}
