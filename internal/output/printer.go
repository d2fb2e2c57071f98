package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

type PrinterOptions struct {
	ForcePretty  bool
	ForceCompact bool
}

// Printer writes command results to out and diagnostics to err.
type Printer struct {
	out io.Writer
	err io.Writer

	pretty bool
}

func NewPrinter(out io.Writer, err io.Writer, opts PrinterOptions) *Printer {
	pretty := false
	if opts.ForcePretty {
		pretty = true
	} else if opts.ForceCompact {
		pretty = false
	} else {
		// auto
		if f, ok := out.(*os.File); ok {
			pretty = term.IsTerminal(int(f.Fd()))
		}
	}
	return &Printer{out: out, err: err, pretty: pretty}
}

// PrintJSON encodes v without HTML escaping, since view models carry
// rendered model fragments that should stay readable.
func (p *Printer) PrintJSON(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return p.PrintBody(buf.Bytes())
}

func (p *Printer) PrintBody(body []byte) error {
	if len(body) == 0 {
		return nil
	}

	out := bytes.TrimRight(body, "\n")
	if p.pretty && json.Valid(out) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}

	if _, err := p.out.Write(out); err != nil {
		return err
	}
	_, err := p.out.Write([]byte("\n"))
	return err
}

// Printf writes a human-readable line to out.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Warnf writes a diagnostic line to err.
func (p *Printer) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.err, format, args...)
}
