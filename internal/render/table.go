package render

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/lc/dnsq/internal/board"
	"github.com/lc/dnsq/internal/catalog"
)

// Header of the results table.
var Header = []string{"DNS Server", "Record Type", "Value", "TTL"}

// Row is the rendered form of one slot.
type Row struct {
	Index  int
	Cells  []string
	State  board.State
	Failed bool
	Custom bool
}

// RowFor renders slot s. A pending slot shows the loading marker; a
// failed one repeats its message across the value and TTL columns.
func RowFor(s board.Slot) Row {
	target := s.Request.Target.Value
	row := Row{Index: s.Index, State: s.State, Custom: s.Request.Target.Custom}

	switch {
	case s.State == board.Pending:
		row.Cells = []string{catalog.LabelOrRaw(target), recordType(s), Loading, ""}
	case s.Outcome.Failed():
		msg := Message(s.Outcome.Err)
		row.Failed = true
		row.Cells = []string{target, recordType(s), msg, msg}
	case len(s.Outcome.Records) == 0:
		row.Cells = []string{label(s), recordType(s), NoRecords, ""}
	default:
		values := make([]string, len(s.Outcome.Records))
		ttls := make([]string, len(s.Outcome.Records))
		for i, r := range s.Outcome.Records {
			values[i] = r.Value
			ttls[i] = ttl(r.TTL)
		}
		row.Cells = []string{label(s), recordType(s), strings.Join(values, "\n"), strings.Join(ttls, "\n")}
	}
	return row
}

func label(s board.Slot) string {
	if s.Outcome.Label != "" {
		return s.Outcome.Label
	}
	return catalog.LabelOrRaw(s.Request.Target.Value)
}

var _ Sink = (*Table)(nil)

// Table keeps one row per slot and renders them in slot order.
type Table struct {
	mu   sync.Mutex
	rows map[int]Row
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{rows: make(map[int]Row)}
}

// Reset drops every row.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make(map[int]Row)
}

// Pending inserts the loading row of s.
func (t *Table) Pending(s board.Slot) { t.set(RowFor(s)) }

// Resolve replaces the row of s in place.
func (t *Table) Resolve(s board.Slot) { t.set(RowFor(s)) }

func (t *Table) set(r Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[r.Index] = r
}

// Rows returns the rows ordered by slot index.
func (t *Table) Rows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Render writes the table to w. Colors follow color.NoColor.
func (t *Table) Render(w io.Writer) {
	rows := t.Rows()

	table := tablewriter.NewWriter(w)
	table.SetHeader(Header)
	table.SetAutoWrapText(false)
	table.SetRowLine(true)
	if !color.NoColor {
		table.SetHeaderColor(
			tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		)
	}

	for _, r := range rows {
		if color.NoColor {
			table.Append(r.Cells)
			continue
		}
		table.Rich(r.Cells, rowColors(r))
	}
	table.Render()
}

func rowColors(r Row) []tablewriter.Colors {
	first := tablewriter.Colors{tablewriter.FgHiWhiteColor}
	if r.Custom {
		first = tablewriter.Colors{tablewriter.Bold, tablewriter.FgBlueColor}
	}
	switch {
	case r.State == board.Pending:
		return []tablewriter.Colors{first, {}, {tablewriter.FgYellowColor}, {}}
	case r.Failed:
		return []tablewriter.Colors{first, {}, {tablewriter.FgRedColor}, {tablewriter.FgRedColor}}
	default:
		return []tablewriter.Colors{first, {tablewriter.FgGreenColor}, {}, {}}
	}
}
