// Package diag prints user-facing diagnostics, with ANSI color when the
// output is an interactive terminal.
package diag

import (
	"fmt"
	"io"
	"os"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiDim    = "\033[2m"
)

// Printer writes leveled diagnostics to one stream.
type Printer struct {
	W     io.Writer
	Color bool
}

// NewPrinter returns a printer for stderr, colored when stderr is a TTY
// and NO_COLOR is unset.
func NewPrinter() *Printer {
	color := isTerminal(os.Stderr.Fd())
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color = false
	}
	return &Printer{W: os.Stderr, Color: color}
}

// Errorf prints an error line.
func (p *Printer) Errorf(format string, args ...any) {
	p.line(ansiRed, "error", format, args...)
}

// Warnf prints a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	p.line(ansiYellow, "warning", format, args...)
}

// Debugf prints a dimmed debug line.
func (p *Printer) Debugf(format string, args ...any) {
	p.line(ansiDim, "debug", format, args...)
}

func (p *Printer) line(color, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.Color {
		fmt.Fprintf(p.W, "%s%s:%s %s\n", color, level, ansiReset, msg)
	} else {
		fmt.Fprintf(p.W, "%s: %s\n", level, msg)
	}
}
