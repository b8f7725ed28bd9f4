package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/lc/dnsq/internal/board"
)

var _ Sink = (*Progress)(nil)

// Progress prints one status line per resolved slot as results arrive.
type Progress struct {
	mu    sync.Mutex
	out   io.Writer
	total int
	done  int
}

// NewProgress writes to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.done = 0, 0
}

func (p *Progress) Pending(board.Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
}

func (p *Progress) Resolve(s board.Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++

	counter := fmt.Sprintf("[%d/%d] ", p.done, p.total)
	switch {
	case s.Outcome.Failed():
		color.New(color.FgHiRed, color.Bold).Fprint(p.out, "✗ ")
		fmt.Fprint(p.out, counter)
		color.New(color.FgRed).Fprintf(p.out, "%s %s\n", s.Request.Target.Value, Message(s.Outcome.Err))
	default:
		color.New(color.FgGreen, color.Bold).Fprint(p.out, "✓ ")
		fmt.Fprint(p.out, counter)
		fmt.Fprintf(p.out, "%s %s: %d record(s)\n", label(s), recordType(s), len(s.Outcome.Records))
	}
}
