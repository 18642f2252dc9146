// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/pdiddy/gpreg/pkg/types"
)

// progress shows a spinner naming the current target. It is inert when
// stderr is not a terminal or debug logging is on.
type progress struct {
	s *spinner.Spinner
}

func newProgress(f *os.File, verbose bool) *progress {
	if verbose || !isatty.IsTerminal(f.Fd()) {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(f))
	s.Suffix = " fetching publication page"
	s.Start()
	return &progress{s: s}
}

// Update is a pipeline.Options.OnTarget callback.
func (p *progress) Update(target types.Target, index, total int) {
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" [%d/%d] %s", index+1, total, target)
	p.s.Unlock()
}

// Stop halts the spinner. It is safe to call more than once.
func (p *progress) Stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

// Writer wraps w so each status line is printed with the spinner cleared.
func (p *progress) Writer(w io.Writer) io.Writer {
	if p.s == nil {
		return w
	}
	return &pausingWriter{s: p.s, w: w}
}

type pausingWriter struct {
	s *spinner.Spinner
	w io.Writer
}

func (pw *pausingWriter) Write(b []byte) (int, error) {
	if !pw.s.Active() {
		return pw.w.Write(b)
	}
	pw.s.Stop()
	defer pw.s.Start()
	return pw.w.Write(b)
}
