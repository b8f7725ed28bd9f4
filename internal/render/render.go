// Package render turns board slots into what the user sees: a results
// table for standard lookups and a plain text log for DNSSEC lookups.
// Row and line builders are pure functions of a slot; sinks only keep the
// rendered form of each slot and write it out.
package render

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lc/dnsq/internal/board"
	"github.com/lc/dnsq/pkg/api"
)

const (
	// Loading marks a slot whose lookup is still in flight.
	Loading = "resolving..."
	// NoRecords is shown for a successful lookup with an empty answer.
	NoRecords = "no records"
)

// Sink receives slot transitions in the order they happen.
type Sink interface {
	// Reset clears everything rendered for the previous submission.
	Reset()
	// Pending shows the placeholder for a new slot.
	Pending(board.Slot)
	// Resolve replaces the placeholder of the slot with its outcome.
	Resolve(board.Slot)
}

// Message is the text shown for a failed lookup: the server message for
// an application error, the error text otherwise.
func Message(err error) string {
	var appErr *api.AppError
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return err.Error()
}

func recordType(s board.Slot) string {
	if rt := s.Outcome.RecordType; rt != "" && s.State == board.Resolved {
		return strings.ToUpper(rt)
	}
	return strings.ToUpper(s.Request.RecordType)
}

func ttl(t uint32) string { return strconv.FormatUint(uint64(t), 10) }

// Multi fans every transition out to several sinks.
type Multi []Sink

func (m Multi) Reset() {
	for _, s := range m {
		s.Reset()
	}
}

func (m Multi) Pending(slot board.Slot) {
	for _, s := range m {
		s.Pending(slot)
	}
}

func (m Multi) Resolve(slot board.Slot) {
	for _, s := range m {
		s.Resolve(slot)
	}
}
