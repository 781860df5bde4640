package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...any) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...any) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

// Semantic formatters for the kinds of text knox prints.
var (
	// Code formats runnable commands. Yellow, or `backticks` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file and vault paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Success, Error and Warning color status markers and messages.
	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Info formats hints and the arrow between an input and its result.
	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats user values such as vault names. 'Quoted' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary details such as sizes, ids and algorithms.
	// (Parenthesized) without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// Status markers that start a result line.
const (
	MarkOK    = "✓"
	MarkFail  = "✗"
	MarkWarn  = "⚠"
	MarkArrow = "→"
)

// Line builds one result line of the form "✓ input → output (detail)".
type Line struct {
	parts []string
}

// OK starts a success line.
func OK(subject string) *Line { return &Line{parts: []string{Success.Sprint(MarkOK), subject}} }

// Fail starts a failure line.
func Fail(subject string) *Line { return &Line{parts: []string{Error.Sprint(MarkFail), subject}} }

// Warn starts a warning line.
func Warn(subject string) *Line { return &Line{parts: []string{Warning.Sprint(MarkWarn), subject}} }

// Hint starts an informational line.
func Hint(subject string) *Line { return &Line{parts: []string{Info.Sprint(MarkArrow), subject}} }

// To appends "→ target".
func (l *Line) To(target string) *Line {
	l.parts = append(l.parts, Info.Sprint(MarkArrow), target)
	return l
}

// Detail appends muted secondary text. Empty details are skipped.
func (l *Line) Detail(format string, a ...any) *Line {
	if format != "" {
		l.parts = append(l.parts, Muted.Sprintf(format, a...))
	}
	return l
}

// String renders the line without a trailing newline.
func (l *Line) String() string {
	return strings.Join(l.parts, " ")
}
