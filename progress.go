package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// progressPrinter prints a percentage every 10% of a pass. It is called
// from pass workers, so done values may arrive out of order.
type progressPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	next     int
	finished bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) update(done, total int) {
	if total <= 0 {
		return
	}
	pct := done * 100 / total

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.next <= 100 && pct >= p.next {
		fmt.Fprintf(p.w, " %3d%% ", p.next)
		p.next += 10
	}
	if done == total && !p.finished {
		fmt.Fprintln(p.w, "complete")
		p.finished = true
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
