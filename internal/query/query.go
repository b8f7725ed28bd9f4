// Package query builds the ordered list of lookups for one submission.
package query

import "strings"

// Target is the resolver a single lookup is sent against: a catalog key
// or a raw IPv4 address typed by the user.
type Target struct {
	Value  string
	Custom bool
}

func (t Target) String() string { return t.Value }

// Request is one lookup. It is a value type and is never modified after
// Build returns it.
type Request struct {
	Domain     string
	RecordType string
	Target     Target
}

// Targets orders the resolvers for a submission: the custom address
// first when present, then the catalog keys in selection order. Repeated
// keys are kept and produce one lookup each.
func Targets(custom string, selected []string) []Target {
	targets := make([]Target, 0, len(selected)+1)
	if c := strings.TrimSpace(custom); c != "" {
		targets = append(targets, Target{Value: c, Custom: true})
	}
	for _, key := range selected {
		targets = append(targets, Target{Value: key})
	}
	return targets
}

// Build pairs every target with the domain and record type.
func Build(domain, recordType string, targets []Target) []Request {
	reqs := make([]Request, len(targets))
	for i, t := range targets {
		reqs[i] = Request{Domain: domain, RecordType: recordType, Target: t}
	}
	return reqs
}

// Selection holds at most one selected resolver key. Selecting a key
// replaces the previous one, which is how the DNSSEC form behaves.
type Selection struct {
	key string
	set bool
}

// Select returns a Selection holding only key.
func Select(key string) Selection {
	return Selection{key: key, set: true}
}

// Select replaces the current key.
func (s *Selection) Select(key string) {
	s.key, s.set = key, true
}

// Clear removes the selection.
func (s *Selection) Clear() {
	s.key, s.set = "", false
}

// Get returns the selected key.
func (s Selection) Get() (string, bool) {
	return s.key, s.set
}

// Targets returns the selection as a target list of length zero or one.
func (s Selection) Targets() []Target {
	if !s.set {
		return nil
	}
	return []Target{{Value: s.key}}
}
