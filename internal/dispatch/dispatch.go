// Package dispatch runs one submission: it lays out a pending slot per
// target, starts every lookup at once and applies results to the board
// as they arrive. Lookups run concurrently; all board and sink updates
// are serialized through a single loop.
package dispatch

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lc/dnsq/internal/board"
	"github.com/lc/dnsq/internal/catalog"
	"github.com/lc/dnsq/internal/log"
	"github.com/lc/dnsq/internal/query"
	"github.com/lc/dnsq/internal/render"
	"github.com/lc/dnsq/pkg/api"
)

// Looker performs one lookup against the backend.
type Looker interface {
	Lookup(ctx context.Context, path string, req api.QueryRequest) (*api.Result, error)
}

// Alerter shows a message outside the results.
type Alerter interface {
	Alert(msg string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(msg string)

func (f AlertFunc) Alert(msg string) { f(msg) }

// TransportError is a lookup whose response never arrived or could not be
// read. Status is "timeout" or "error".
type TransportError struct {
	Status string
	Err    error
}

func (e *TransportError) Error() string { return "request failed: " + e.Status }

func (e *TransportError) Unwrap() error { return e.Err }

// Submission is one validated form.
type Submission struct {
	Domain     string
	RecordType string
	Targets    []query.Target
}

// Dispatcher runs submissions against one backend path.
type Dispatcher struct {
	looker Looker
	path   string
	board  board.Board
	sink   render.Sink
	alerts Alerter

	mu sync.Mutex // one submission at a time
}

// New returns a Dispatcher that posts to path and renders into sink. A
// nil alerts discards alerts.
func New(looker Looker, path string, sink render.Sink, alerts Alerter) *Dispatcher {
	if alerts == nil {
		alerts = AlertFunc(func(string) {})
	}
	return &Dispatcher{
		looker: looker,
		path:   path,
		board:  board.New(),
		sink:   sink,
		alerts: alerts,
	}
}

// Board exposes the slots of the last submission.
func (d *Dispatcher) Board() board.Board { return d.board }

type completion struct {
	index  int
	req    query.Request
	result *api.Result
	err    error
}

// Run clears the previous results, shows every pending slot, then starts
// all lookups and resolves each slot as its lookup finishes. It returns
// the final slots in index order once every lookup has completed.
func (d *Dispatcher) Run(ctx context.Context, sub Submission) []board.Slot {
	d.mu.Lock()
	defer d.mu.Unlock()

	reqs := query.Build(sub.Domain, sub.RecordType, sub.Targets)

	d.board.Reset()
	d.sink.Reset()
	for i, r := range reqs {
		d.sink.Pending(d.board.Insert(i, r))
	}
	if len(reqs) == 0 {
		return d.board.Snapshot()
	}

	// buffered so a lookup never blocks on a slow consumer
	done := make(chan completion, len(reqs))
	var grp errgroup.Group
	for i, r := range reqs {
		i, r := i, r
		grp.Go(func() error {
			res, err := d.looker.Lookup(ctx, d.path, api.QueryRequest{
				Domain:     r.Domain,
				RecordType: r.RecordType,
				DNSServer:  r.Target.Value,
			})
			done <- completion{index: i, req: r, result: res, err: err}
			return nil
		})
	}

	for range reqs {
		d.apply(<-done)
	}
	_ = grp.Wait()

	return d.board.Snapshot()
}

func (d *Dispatcher) apply(c completion) {
	outcome := outcomeOf(c)

	slot, ok := d.board.Resolve(c.index, outcome)
	if !ok {
		log.Warn("dispatch: slot already resolved", "index", c.index)
		return
	}
	d.sink.Resolve(slot)

	var transport *TransportError
	if errors.As(outcome.Err, &transport) {
		d.alerts.Alert(transport.Error())
	}
	log.Debug("dispatch: resolved", "index", c.index, "target", c.req.Target.Value, "failed", outcome.Failed())
}

func outcomeOf(c completion) board.Outcome {
	target := c.req.Target.Value
	rt := strings.ToUpper(c.req.RecordType)

	if c.err != nil {
		var appErr *api.AppError
		if errors.As(c.err, &appErr) {
			return board.Outcome{Label: target, RecordType: rt, Err: appErr}
		}
		return board.Outcome{Label: target, RecordType: rt, Err: &TransportError{Status: status(c.err), Err: c.err}}
	}

	res := c.result
	if res == nil {
		res = &api.Result{}
	}
	server := res.DNSServer
	if server == "" {
		server = target
	}
	if res.RecordType != "" {
		rt = res.RecordType
	}
	return board.Outcome{Label: catalog.LabelOrRaw(server), RecordType: rt, Records: res.Records}
}

// status classifies a transport failure.
func status(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "error"
}
