package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiBlue  = "\x1b[34m"

	statusLabelWidth = 20
	statusIndent     = "  "
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

// statusPrinter accumulates status lines, colouring them when writing to a terminal.
type statusPrinter struct {
	colorize bool
	lines    []string
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{colorize: shouldColorize(out)}
}

func (p *statusPrinter) section(title string) {
	if len(p.lines) > 0 {
		p.lines = append(p.lines, "")
	}
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	p.lines = append(p.lines, p.paint(ansiBlue, header), p.paint(ansiBlue, rule))
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	text := fmt.Sprintf("%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", style.label)
	if message != "" {
		text += " " + message
	}
	p.lines = append(p.lines, p.paint(style.color, text))
}

// check renders a pass/fail result; failures use failKind.
func (p *statusPrinter) check(label string, passed bool, detail string, failKind statusKind) {
	kind := statusOK
	if !passed {
		kind = failKind
	}
	p.line(label, kind, detail)
}

func (p *statusPrinter) paint(color, text string) string {
	if !p.colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func (p *statusPrinter) String() string {
	return strings.Join(p.lines, "\n")
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
