// Package api exposes the dnsqd lookup API: JSON over HTTP, on a TCP
// address or a Unix domain socket. Every lookup answers HTTP 200 with an
// Envelope; the envelope code tells success from failure.
package api

import (
	"fmt"
	"time"
)

// Envelope codes.
const (
	CodeOK           = "1"
	CodeError        = "0"
	CodeBusiness     = "BUS500"
	CodeQueryTimeout = "QUERY_DNS_TIMEOUT"
)

// MsgOK is the message of every successful envelope.
const MsgOK = "ok"

// Routes.
const (
	PathQuery       = "/v1/query"
	PathQueryDNSSEC = "/v1/query_dnssec"
	PathStatus      = "/v1/status"
	PathMetrics     = "/metrics"
)

// HeaderRequestID carries the request id set by the server.
const HeaderRequestID = "X-Request-ID"

// QueryRequest is the body of both lookup routes. DNSServer is a catalog
// key or a raw IPv4 address.
type QueryRequest struct {
	Domain     string `json:"domain"`
	RecordType string `json:"recordType"`
	DNSServer  string `json:"dnsServer"`
}

// Record is one answer. RecordType is set by the DNSSEC route only.
type Record struct {
	Value      string `json:"value"`
	TTL        uint32 `json:"ttl"`
	RecordType string `json:"recordType,omitempty"`
}

// Result is the data of a successful lookup. DNSServer echoes the
// request; Records may be empty.
type Result struct {
	DNSServer  string   `json:"dnsServer"`
	RecordType string   `json:"recordType"`
	Records    []Record `json:"record"`
}

// Envelope wraps every lookup response.
type Envelope struct {
	Code string  `json:"code"`
	Msg  string  `json:"msg"`
	Data *Result `json:"data"`
}

// StatusResponse represents the server status response.
type StatusResponse struct {
	Uptime  time.Duration `json:"uptime"`
	Lookups int64         `json:"lookups"`
	Version string        `json:"version"`
	Commit  string        `json:"commit"`
}

// AppError is a lookup the server rejected or could not complete. Msg is
// meant for display as is.
type AppError struct {
	Code string
	Msg  string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("code = %s msg = %s", e.Code, e.Msg)
}

func businessError(format string, a ...any) *AppError {
	return &AppError{Code: CodeBusiness, Msg: fmt.Sprintf(format, a...)}
}
