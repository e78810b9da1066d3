// Package console prints the colored status lines the ops commands show to operators.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Printer writes prefixed, colored lines. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer

	step    *color.Color
	info    *color.Color
	success *color.Color
	warn    *color.Color
	fail    *color.Color
	header  *color.Color
}

// New returns a Printer writing to out. Colors are disabled when noColor is set.
func New(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:     out,
		step:    color.New(color.FgCyan, color.Bold),
		info:    color.New(color.FgBlue),
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
		header:  color.New(color.FgMagenta, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.step, p.info, p.success, p.warn, p.fail, p.header} {
			c.DisableColor()
		}
	}
	return p
}

// Stdout returns a Printer on standard output honoring NO_COLOR and non-terminal output.
func Stdout() *Printer {
	return New(color.Output, color.NoColor)
}

func (p *Printer) Step(format string, args ...any) {
	p.line(p.step, "==>", format, args...)
}

func (p *Printer) Info(format string, args ...any) {
	p.line(p.info, "[INFO]", format, args...)
}

func (p *Printer) Success(format string, args ...any) {
	p.line(p.success, "[OK]", format, args...)
}

func (p *Printer) Warn(format string, args ...any) {
	p.line(p.warn, "[WARN]", format, args...)
}

func (p *Printer) Error(format string, args ...any) {
	p.line(p.fail, "[ERROR]", format, args...)
}

// Header prints a section title.
func (p *Printer) Header(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	title := fmt.Sprintf(format, args...)
	p.header.Fprintf(p.out, "\n=== %s ===\n", title)
}

// Plain writes text without a prefix or color.
func (p *Printer) Plain(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) line(c *color.Color, prefix, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c.Fprintf(p.out, "%s ", prefix)
	fmt.Fprintf(p.out, format, args...)
	fmt.Fprintln(p.out)
}

// Discard is a Printer that drops everything.
var Discard = New(io.Discard, true)
