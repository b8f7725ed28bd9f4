// Package dnsresolver sends single DNS questions to an explicit upstream
// server on behalf of the lookup API.
//
// Every call names its upstream (host:port); there is no resolver pool
// and no caching. A plain Query keeps only the answers whose type equals
// the question type, so a CNAME chain in front of an A answer is dropped.
// QueryDNSSEC sets the DNSSEC OK bit through an EDNS0 OPT record and
// returns every answer, RRSIGs included, each tagged with its type name.
//
// # Basic Usage
//
//	resolver := dnsresolver.New(10*time.Second, dnsresolver.WithRetries(1))
//	answers, err := resolver.Query(ctx, "8.8.8.8:53", "example.com", dns.TypeA)
//	if err != nil {
//		return err
//	}
//	for _, a := range answers {
//		fmt.Println(a.TTL, a.Value)
//	}
//
// # Retries and Timeouts
//
// The timeout bounds the whole call, retries included. Each failed
// exchange is retried Retries more times; the returned error aggregates
// every attempt with go.uber.org/multierr.
//
// # Values
//
// Answer.Value is the rdata in presentation format: a bare address for
// A and AAAA, a fully qualified name for CNAME and NS, and the quoted
// character strings for TXT.
package dnsresolver
