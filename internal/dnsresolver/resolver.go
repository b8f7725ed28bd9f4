package dnsresolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"
)

var (
	// ErrEmptyMsg is returned when the upstream answers with no message.
	ErrEmptyMsg = errors.New("empty message")
	// ErrEmptyName is returned when an empty domain is queried.
	ErrEmptyName = errors.New("empty domain name")
	// ErrUnsupportedType is returned for record types outside Types.
	ErrUnsupportedType = errors.New("unsupported record type")
)

// ednsBufSize is advertised in the OPT record of DNSSEC queries.
const ednsBufSize = 4096

// Types maps the supported record type names to their wire codes.
var Types = map[string]uint16{
	"A":     dns.TypeA,
	"AAAA":  dns.TypeAAAA,
	"CNAME": dns.TypeCNAME,
	"NS":    dns.TypeNS,
	"TXT":   dns.TypeTXT,
}

// ParseType resolves a record type name, case-insensitively.
func ParseType(name string) (uint16, error) {
	qt, ok := Types[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
	return qt, nil
}

// TypeNames returns the supported record type names, sorted.
func TypeNames() []string {
	out := make([]string, 0, len(Types))
	for name := range Types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Answer is one resource record from the answer section.
type Answer struct {
	Value string
	TTL   uint32
	Type  string
}

var _ Querier = (*Client)(nil)

// Querier sends one question to one upstream server.
type Querier interface {
	// Query returns the answers whose type equals qtype.
	Query(ctx context.Context, server, domain string, qtype uint16) ([]Answer, error)
	// QueryDNSSEC sets the DO bit and returns every answer, signatures
	// included, tagged with its type.
	QueryDNSSEC(ctx context.Context, server, domain string, qtype uint16) ([]Answer, error)
}

// Exchanger defines the interface for DNS message exchange.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, a string) (r *dns.Msg, rtt time.Duration, err error)
}

// Client implements Querier over an Exchanger.
type Client struct {
	Client  Exchanger
	Timeout time.Duration
	Retries uint
}

// Opt is a function option for configuring the Client.
type Opt func(r *Client)

// New creates a new Client with the given timeout and optional configurations.
func New(timeout time.Duration, opts ...Opt) *Client {
	res := &Client{
		Client: &dns.Client{
			Timeout: timeout,
		},
		Timeout: timeout,
	}

	for _, o := range opts {
		o(res)
	}

	return res
}

// WithTimeout returns an option to set a custom timeout for DNS queries.
// This overrides the timeout provided to New.
func WithTimeout(timeout time.Duration) Opt {
	return func(r *Client) {
		r.Timeout = timeout
	}
}

// WithRetries sets how many extra attempts follow a failed exchange.
func WithRetries(n uint) Opt {
	return func(r *Client) {
		r.Retries = n
	}
}

// Query sends a plain question for domain to server (host:port).
func (r *Client) Query(ctx context.Context, server, domain string, qtype uint16) ([]Answer, error) {
	resp, err := r.exchange(ctx, server, domain, qtype, false)
	if err != nil {
		return nil, err
	}

	out := make([]Answer, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		out = append(out, answerOf(rr))
	}
	return out, nil
}

// QueryDNSSEC sends the question with the DNSSEC OK bit set.
func (r *Client) QueryDNSSEC(ctx context.Context, server, domain string, qtype uint16) ([]Answer, error) {
	resp, err := r.exchange(ctx, server, domain, qtype, true)
	if err != nil {
		return nil, err
	}

	out := make([]Answer, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		out = append(out, answerOf(rr))
	}
	return out, nil
}

// exchange runs the question with r.Retries additional attempts. Every
// failed attempt is kept in the returned error.
func (r *Client) exchange(ctx context.Context, server, domain string, qtype uint16, dnssec bool) (*dns.Msg, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, ErrEmptyName
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var errs error
	for attempt := uint(0); attempt <= r.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, multierr.Append(errs, err)
		}

		// ExchangeContext mutates the message, so build a fresh one.
		req := new(dns.Msg)
		req.SetQuestion(dns.Fqdn(domain), qtype)
		if dnssec {
			req.SetEdns0(ednsBufSize, true)
		}

		resp, _, err := r.Client.ExchangeContext(ctx, req, server)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if resp == nil {
			return nil, ErrEmptyMsg
		}
		return resp, nil
	}

	if errs == nil {
		errs = fmt.Errorf("dns query failed for %q", domain)
	}
	return nil, errs
}

// answerOf renders the rdata of rr in presentation format.
func answerOf(rr dns.RR) Answer {
	hdr := rr.Header()
	value := strings.TrimPrefix(rr.String(), hdr.String())
	return Answer{
		Value: strings.TrimSpace(value),
		TTL:   hdr.Ttl,
		Type:  dns.TypeToString[hdr.Rrtype],
	}
}
