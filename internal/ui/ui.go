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
	Color  string
}

type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

type UI struct {
	out *Printer
	err *Printer
}

type Printer struct {
	w io.Writer
	o *termenv.Output
}

type ctxKey struct{}

func New(opts Options) (*UI, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	color := strings.ToLower(strings.TrimSpace(opts.Color))
	if color == "" {
		color = "auto"
	}
	var outOpts []termenv.OutputOption
	switch color {
	case "auto":
		if os.Getenv("NO_COLOR") != "" {
			outOpts = append(outOpts, termenv.WithProfile(termenv.Ascii))
		}
	case "always":
		outOpts = append(outOpts, termenv.WithProfile(termenv.ANSI))
	case "never":
		outOpts = append(outOpts, termenv.WithProfile(termenv.Ascii))
	default:
		return nil, &ParseError{msg: fmt.Sprintf("invalid --color %q (expected auto|always|never)", opts.Color)}
	}
	return &UI{
		out: &Printer{w: opts.Stdout, o: termenv.NewOutput(opts.Stdout, outOpts...)},
		err: &Printer{w: opts.Stderr, o: termenv.NewOutput(opts.Stderr, outOpts...)},
	}, nil
}

func (u *UI) Out() *Printer { return u.out }
func (u *UI) Err() *Printer { return u.err }

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

func (p *Printer) Println(a ...any) {
	_, _ = fmt.Fprintln(p.w, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", a...)
}

func (p *Printer) Successf(format string, a ...any) {
	p.colored("2", fmt.Sprintf(format, a...))
}

func (p *Printer) Warnf(format string, a ...any) {
	p.colored("3", fmt.Sprintf(format, a...))
}

func (p *Printer) Error(msg string) {
	p.colored("1", msg)
}

func (p *Printer) colored(ansi, msg string) {
	_, _ = fmt.Fprintln(p.w, p.o.String(msg).Foreground(p.o.Color(ansi)).String())
}
