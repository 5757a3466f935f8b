package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Color  string // auto|always|never
}

type ParseError struct{ msg string }

func (e *ParseError) Error() string { return e.msg }

type UI struct {
	out *Printer
	err *Printer
}

// Printer writes human-facing lines, optionally colored.
type Printer struct {
	o *termenv.Output
}

func New(opts Options) (*UI, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	mode := strings.ToLower(strings.TrimSpace(opts.Color))
	if mode == "" {
		mode = "auto"
	}
	var outOpts []termenv.OutputOption
	switch mode {
	case "auto":
	case "always":
		outOpts = append(outOpts, termenv.WithProfile(termenv.ANSI256))
	case "never":
		outOpts = append(outOpts, termenv.WithProfile(termenv.Ascii))
	default:
		return nil, &ParseError{msg: fmt.Sprintf("invalid --color %q (expected auto|always|never)", opts.Color)}
	}

	newPrinter := func(w io.Writer) *Printer {
		o := termenv.NewOutput(w, outOpts...)
		if mode == "auto" && o.EnvNoColor() {
			o = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
		}
		return &Printer{o: o}
	}

	return &UI{out: newPrinter(opts.Stdout), err: newPrinter(opts.Stderr)}, nil
}

func (u *UI) Out() *Printer { return u.out }
func (u *UI) Err() *Printer { return u.err }

func (p *Printer) Println(msg string) {
	fmt.Fprintln(p.o, msg)
}

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintln(p.o, fmt.Sprintf(format, args...))
}

func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.o, p.o.String(fmt.Sprintf(format, args...)).Foreground(p.o.Color("2")).String())
}

func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.o, p.o.String(fmt.Sprintf(format, args...)).Foreground(p.o.Color("3")).String())
}

func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.o, p.o.String(msg).Foreground(p.o.Color("1")).Bold().String())
}

type ctxKey struct{}

func WithUI(ctx context.Context, u *UI) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) *UI {
	if ctx == nil {
		return nil
	}
	u, _ := ctx.Value(ctxKey{}).(*UI)
	return u
}
