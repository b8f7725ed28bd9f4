// Package validate checks lookup forms before anything is dispatched.
//
// Every rule is evaluated; the returned error combines one *Failure per
// broken rule with go.uber.org/multierr, in the order the fields appear
// on the form. Use Failures to list them and errors.Is with the Err*
// values to test for a specific kind.
package validate

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/multierr"

	"github.com/lc/dnsq/internal/query"
)

// Kind identifies a validation rule.
type Kind int

const (
	EmptyDomain Kind = iota + 1
	InvalidDomainFormat
	InvalidResolverAddress
	MissingRecordType
	MissingResolver
)

var kindNames = map[Kind]string{
	EmptyDomain:            "EmptyDomain",
	InvalidDomainFormat:    "InvalidDomainFormat",
	InvalidResolverAddress: "InvalidResolverAddress",
	MissingRecordType:      "MissingRecordType",
	MissingResolver:        "MissingResolver",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Failure is one broken rule with the message shown to the user.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string { return f.Message }

// Is matches any Failure of the same kind, so errors.Is(err, ErrMissingResolver)
// holds for both the standard and the security wording.
func (f *Failure) Is(target error) bool {
	var t *Failure
	return errors.As(target, &t) && t.Kind == f.Kind
}

var (
	ErrEmptyDomain            = &Failure{Kind: EmptyDomain, Message: "domain cannot be empty"}
	ErrInvalidDomainFormat    = &Failure{Kind: InvalidDomainFormat, Message: "invalid domain format"}
	ErrInvalidResolverAddress = &Failure{Kind: InvalidResolverAddress, Message: "invalid dns server address"}
	ErrMissingRecordType      = &Failure{Kind: MissingRecordType, Message: "record type cannot be empty"}
	ErrMissingResolver        = &Failure{Kind: MissingResolver, Message: "select a dns provider or enter a custom dns server"}

	errMissingSecResolver = &Failure{Kind: MissingResolver, Message: "select a dns provider"}
)

var (
	// labels of 1-63 chars, no leading/trailing hyphen, alphabetic-led
	// top label, optional :port
	domainRE = regexp.MustCompile(`^(?:(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z][a-zA-Z0-9-]{0,61}[a-zA-Z0-9])(?::\d{1,5})?$`)

	// grammar accepted by the lookup API: no port, any top label of 2+ chars
	queryNameRE = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z0-9-]{2,}$`)

	octet  = `(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`
	ipv4RE = regexp.MustCompile(`^` + octet + `\.` + octet + `\.` + octet + `\.` + octet + `$`)
)

// Form is the standard lookup form.
type Form struct {
	Domain         string
	CustomResolver string
	RecordType     string
	Resolvers      []string // selected catalog keys
}

// SecurityForm is the DNSSEC lookup form. It has no custom resolver and
// at most one selected catalog resolver.
type SecurityForm struct {
	Domain     string
	RecordType string
	Resolver   query.Selection
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsDomain reports whether s matches the hostname grammar.
func IsDomain(s string) bool {
	return domainRE.MatchString(s)
}

// IsQueryName reports whether s is a name the lookup API will query.
func IsQueryName(s string) bool {
	return queryNameRE.MatchString(s)
}

// IsIPv4 reports whether s is a dotted quad with octets 0-255.
func IsIPv4(s string) bool {
	return ipv4RE.MatchString(s)
}

// Standard validates the standard form.
func Standard(f Form) error {
	errs := checkDomain(f.Domain)
	if !IsBlank(f.CustomResolver) && !IsIPv4(f.CustomResolver) {
		errs = multierr.Append(errs, ErrInvalidResolverAddress)
	}
	if IsBlank(f.RecordType) {
		errs = multierr.Append(errs, ErrMissingRecordType)
	}
	if len(f.Resolvers) == 0 && IsBlank(f.CustomResolver) {
		errs = multierr.Append(errs, ErrMissingResolver)
	}
	return errs
}

// Security validates the DNSSEC form.
func Security(f SecurityForm) error {
	errs := checkDomain(f.Domain)
	if IsBlank(f.RecordType) {
		errs = multierr.Append(errs, ErrMissingRecordType)
	}
	if key, ok := f.Resolver.Get(); !ok || IsBlank(key) {
		errs = multierr.Append(errs, errMissingSecResolver)
	}
	return errs
}

// Failures lists the individual failures combined in err.
func Failures(err error) []*Failure {
	var out []*Failure
	for _, e := range multierr.Errors(err) {
		var f *Failure
		if errors.As(e, &f) {
			out = append(out, f)
		}
	}
	return out
}

func checkDomain(domain string) error {
	if IsBlank(domain) {
		return ErrEmptyDomain
	}
	if !IsDomain(domain) {
		return ErrInvalidDomainFormat
	}
	return nil
}
