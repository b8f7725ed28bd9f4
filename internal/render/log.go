package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/lc/dnsq/internal/board"
)

// LinesFor renders the text lines of a resolved slot: one
// "<domain> <ttl> <value>" line per record, NoRecords for an empty answer
// or the failure message.
func LinesFor(s board.Slot) []string {
	if s.State != board.Resolved {
		return nil
	}
	if s.Outcome.Failed() {
		return []string{Message(s.Outcome.Err)}
	}
	if len(s.Outcome.Records) == 0 {
		return []string{NoRecords}
	}
	out := make([]string, len(s.Outcome.Records))
	for i, r := range s.Outcome.Records {
		out[i] = fmt.Sprintf("%s %s %s", s.Request.Domain, ttl(r.TTL), r.Value)
	}
	return out
}

var _ Sink = (*Log)(nil)

// Log is an append-only text buffer. Every resolved slot adds its lines
// in arrival order; nothing already written is replaced.
type Log struct {
	mu      sync.Mutex
	lines   []string
	pending map[int]struct{}
	out     io.Writer
}

// NewLog returns an empty Log. When out is non-nil every appended line is
// also written to it as it arrives.
func NewLog(out io.Writer) *Log {
	return &Log{pending: make(map[int]struct{}), out: out}
}

// Reset clears the buffer and the placeholders.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
	l.pending = make(map[int]struct{})
}

// Pending records the placeholder of s.
func (l *Log) Pending(s board.Slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[s.Index] = struct{}{}
}

// Resolve removes the placeholder of s and appends its lines.
func (l *Log) Resolve(s board.Slot) {
	lines := LinesFor(s)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, s.Index)
	l.lines = append(l.lines, lines...)
	if l.out != nil {
		for _, line := range lines {
			fmt.Fprintln(l.out, line)
		}
	}
}

// Lines returns a copy of the buffer.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Text returns the buffer, one line per entry.
func (l *Log) Text() string {
	lines := l.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Placeholders returns the indices of slots still waiting, sorted.
func (l *Log) Placeholders() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]int, 0, len(l.pending))
	for i := range l.pending {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
