package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusFail
)

const statusLabelWidth = 24

var statusStyles = map[statusKind]struct {
	label  string
	colors text.Colors
}{
	statusOK:   {"OK", text.Colors{text.FgGreen}},
	statusWarn: {"WARN", text.Colors{text.FgYellow}},
	statusFail: {"FAIL", text.Colors{text.FgRed, text.Bold}},
}

// statusReport prints aligned "label: [KIND] detail" lines, colored when the
// writer is a terminal.
type statusReport struct {
	w     io.Writer
	color bool
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{w: w, color: isTerminal(w)}
}

func (r *statusReport) header(title string) {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if r.color {
		line, rule = text.FgBlue.Sprint(line), text.FgBlue.Sprint(rule)
	}
	fmt.Fprintln(r.w, line)
	fmt.Fprintln(r.w, rule)
}

func (r *statusReport) line(label string, kind statusKind, detail string) {
	fmt.Fprintln(r.w, renderStatusLine(label, kind, detail, r.color))
}

func renderStatusLine(label string, kind statusKind, detail string, color bool) string {
	style := statusStyles[kind]
	status := "[" + style.label + "]"
	if detail != "" {
		status += " " + detail
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	if color {
		return style.colors.Sprint(line)
	}
	return line
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
