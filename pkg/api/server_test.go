package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lc/dnsq/internal/dnsresolver"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, server, domain string, qtype uint16) ([]dnsresolver.Answer, error) {
	args := m.Called(ctx, server, domain, qtype)
	answers, _ := args.Get(0).([]dnsresolver.Answer)
	return answers, args.Error(1)
}

func (m *mockQuerier) QueryDNSSEC(ctx context.Context, server, domain string, qtype uint16) ([]dnsresolver.Answer, error) {
	args := m.Called(ctx, server, domain, qtype)
	answers, _ := args.Get(0).([]dnsresolver.Answer)
	return answers, args.Error(1)
}

type ServerTestSuite struct {
	suite.Suite
	querier *mockQuerier
	server  *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.querier = new(mockQuerier)
	s.server = New(s.querier)
}

func (s *ServerTestSuite) do(h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		s.Require().NoError(err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) envelope(rec *httptest.ResponseRecorder) Envelope {
	var env Envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func (s *ServerTestSuite) TestQuery() {
	s.querier.On("Query", mock.Anything, "8.8.8.8:53", "example.com", dns.TypeA).
		Return([]dnsresolver.Answer{
			{Value: "93.184.216.34", TTL: 300, Type: "A"},
			{Value: "93.184.216.35", TTL: 300, Type: "A"},
		}, nil)

	rec := s.do(s.server.Handler(), http.MethodPost, PathQuery, QueryRequest{Domain: "example.com", RecordType: "a", DNSServer: "google"}, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))

	env := s.envelope(rec)
	s.Equal(CodeOK, env.Code)
	s.Equal(MsgOK, env.Msg)
	s.Require().NotNil(env.Data)
	s.Equal("google", env.Data.DNSServer)
	s.Equal("A", env.Data.RecordType)
	s.Equal([]Record{{Value: "93.184.216.34", TTL: 300}, {Value: "93.184.216.35", TTL: 300}}, env.Data.Records)
	s.querier.AssertExpectations(s.T())
}

func (s *ServerTestSuite) TestQueryNoRecords() {
	s.querier.On("Query", mock.Anything, "1.1.1.1:53", "example.com", dns.TypeAAAA).
		Return([]dnsresolver.Answer{}, nil)

	rec := s.do(s.server.Handler(), http.MethodPost, PathQuery, QueryRequest{Domain: "example.com", RecordType: "AAAA", DNSServer: "cloudflare"}, nil)
	env := s.envelope(rec)
	s.Equal(CodeOK, env.Code)
	s.Require().NotNil(env.Data)
	s.Empty(env.Data.Records)
	s.Contains(rec.Body.String(), `"record":[]`)
}

func (s *ServerTestSuite) TestQueryDNSSEC() {
	s.querier.On("QueryDNSSEC", mock.Anything, "9.9.9.9:5353", "example.com", dns.TypeA).
		Return([]dnsresolver.Answer{
			{Value: "93.184.216.34", TTL: 300, Type: "A"},
			{Value: "A 13 2 300 20240101000000 20231201000000 12345 example.com. c2ln", TTL: 300, Type: "RRSIG"},
		}, nil)

	srv := New(s.querier, WithDNSPort(5353))
	rec := s.do(srv.Handler(), http.MethodPost, PathQueryDNSSEC, QueryRequest{Domain: "example.com", RecordType: "A", DNSServer: "9.9.9.9"}, nil)

	env := s.envelope(rec)
	s.Equal(CodeOK, env.Code)
	s.Require().NotNil(env.Data)
	s.Equal("9.9.9.9", env.Data.DNSServer)
	s.Require().Len(env.Data.Records, 2)
	s.Equal("A", env.Data.Records[0].RecordType)
	s.Equal("RRSIG", env.Data.Records[1].RecordType)
	s.querier.AssertExpectations(s.T())
}

func (s *ServerTestSuite) TestValidation() {
	testCases := []struct {
		name string
		req  QueryRequest
		msg  string
	}{
		{name: "empty domain", req: QueryRequest{Domain: " ", RecordType: "A", DNSServer: "google"}, msg: "domain cannot be empty"},
		{name: "bad domain", req: QueryRequest{Domain: "example.com:80", RecordType: "A", DNSServer: "google"}, msg: "invalid domain format"},
		{name: "empty type", req: QueryRequest{Domain: "example.com", DNSServer: "google"}, msg: "record type cannot be empty"},
		{name: "unsupported type", req: QueryRequest{Domain: "example.com", RecordType: "MX", DNSServer: "google"}, msg: "unsupported record type"},
		{name: "empty server", req: QueryRequest{Domain: "example.com", RecordType: "A"}, msg: "dns provider cannot be empty"},
		{name: "unknown server key", req: QueryRequest{Domain: "example.com", RecordType: "A", DNSServer: "quad9"}, msg: "invalid dns server ip address"},
		{name: "bad server ip", req: QueryRequest{Domain: "example.com", RecordType: "A", DNSServer: "300.1.1.1"}, msg: "invalid dns server ip address"},
	}

	for _, tc := range testCases {
		for _, path := range []string{PathQuery, PathQueryDNSSEC} {
			s.Run(tc.name+" "+path, func() {
				rec := s.do(s.server.Handler(), http.MethodPost, path, tc.req, nil)
				s.Equal(http.StatusOK, rec.Code)
				env := s.envelope(rec)
				s.Equal(CodeBusiness, env.Code)
				s.Equal(tc.msg, env.Msg)
				s.Nil(env.Data)
			})
		}
	}
	s.querier.AssertNotCalled(s.T(), "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.querier.AssertNotCalled(s.T(), "QueryDNSSEC", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServerTestSuite) TestUpstreamFailure() {
	s.querier.On("Query", mock.Anything, "223.5.5.5:53", "example.com", dns.TypeTXT).
		Return(nil, errors.New("read udp: i/o timeout"))

	rec := s.do(s.server.Handler(), http.MethodPost, PathQuery, QueryRequest{Domain: "example.com", RecordType: "TXT", DNSServer: "ali"}, nil)
	env := s.envelope(rec)
	s.Equal(CodeQueryTimeout, env.Code)
	s.Equal("read udp: i/o timeout", env.Msg)
}

func (s *ServerTestSuite) TestBadBody() {
	rec := s.do(s.server.Handler(), http.MethodPost, PathQuery, "{not json", nil)
	s.Equal(http.StatusOK, rec.Code)
	env := s.envelope(rec)
	s.Equal(CodeBusiness, env.Code)
	s.Contains(env.Msg, "invalid request body")
}

func (s *ServerTestSuite) TestMethodNotAllowed() {
	rec := s.do(s.server.Handler(), http.MethodGet, PathQuery, nil, nil)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)

	rec = s.do(s.server.Handler(), http.MethodPost, PathStatus, nil, nil)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (s *ServerTestSuite) TestStatusCountsLookups() {
	s.do(s.server.Handler(), http.MethodPost, PathQuery, QueryRequest{}, nil)
	s.do(s.server.Handler(), http.MethodPost, PathQuery, QueryRequest{}, nil)

	rec := s.do(s.server.Handler(), http.MethodGet, PathStatus, nil, nil)
	s.Equal(http.StatusOK, rec.Code)

	var status StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	s.EqualValues(2, status.Lookups)
	s.NotEmpty(status.Version)
}

func (s *ServerTestSuite) TestRequestID() {
	rec := s.do(s.server.Handler(), http.MethodGet, PathStatus, nil, nil)
	s.NotEmpty(rec.Header().Get(HeaderRequestID))

	rec = s.do(s.server.Handler(), http.MethodGet, PathStatus, nil, http.Header{HeaderRequestID: {"abc-123"}})
	s.Equal("abc-123", rec.Header().Get(HeaderRequestID))

	rec = s.do(s.server.Handler(), http.MethodGet, PathStatus, nil, http.Header{"x-request-id": {"lower-456"}})
	s.Equal("lower-456", rec.Header().Get(HeaderRequestID))
}

func (s *ServerTestSuite) TestAuthorization() {
	secret := "s3cret"
	srv := New(s.querier, WithJWTSecret(secret))
	s.querier.On("Query", mock.Anything, "8.8.8.8:53", "example.com", dns.TypeA).Return([]dnsresolver.Answer{}, nil)

	valid, err := NewToken([]byte(secret), "test", time.Hour)
	s.Require().NoError(err)
	forged, err := NewToken([]byte("other"), "test", time.Hour)
	s.Require().NoError(err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte(secret))
	s.Require().NoError(err)

	testCases := []struct {
		name   string
		header http.Header
		status int
	}{
		{name: "no header", status: http.StatusUnauthorized},
		{name: "not bearer", header: http.Header{"Authorization": {"Basic Zm9vOmJhcg=="}}, status: http.StatusUnauthorized},
		{name: "wrong key", header: http.Header{"Authorization": {"Bearer " + forged}}, status: http.StatusUnauthorized},
		{name: "expired", header: http.Header{"Authorization": {"Bearer " + expired}}, status: http.StatusUnauthorized},
		{name: "valid", header: http.Header{"Authorization": {"Bearer " + valid}}, status: http.StatusOK},
		{name: "lowercase scheme", header: http.Header{"Authorization": {"bearer " + valid}}, status: http.StatusOK},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			rec := s.do(srv.Handler(), http.MethodPost, PathQuery, QueryRequest{Domain: "example.com", RecordType: "A", DNSServer: "google"}, tc.header)
			s.Equal(tc.status, rec.Code)
		})
	}

	// status stays open
	rec := s.do(srv.Handler(), http.MethodGet, PathStatus, nil, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerTestSuite) TestRateLimit() {
	srv := New(s.querier, WithRateLimit(1))

	first := s.do(srv.Handler(), http.MethodGet, PathStatus, nil, nil)
	s.Equal(http.StatusOK, first.Code)

	second := s.do(srv.Handler(), http.MethodGet, PathStatus, nil, nil)
	s.Equal(http.StatusTooManyRequests, second.Code)
	s.Equal(CodeError, s.envelope(second).Code)
}

func (s *ServerTestSuite) TestMetrics() {
	s.do(s.server.Handler(), http.MethodPost, PathQuery, QueryRequest{}, nil)

	rec := s.do(s.server.Handler(), http.MethodGet, PathMetrics, nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `dnsq_lookups_total{code="BUS500",path="/v1/query"} 1`)
}

func (s *ServerTestSuite) TestNewToken() {
	_, err := NewToken(nil, "x", time.Hour)
	s.ErrorIs(err, ErrEmptySecret)

	raw, err := NewToken([]byte("k"), "cli", 0)
	s.Require().NoError(err)
	claims, err := VerifyToken([]byte("k"), raw)
	s.Require().NoError(err)
	s.Equal("cli", claims.Subject)
	s.Equal(TokenIssuer, claims.Issuer)
	s.Nil(claims.ExpiresAt)

	_, err = VerifyToken([]byte("k"), "garbage")
	s.ErrorIs(err, ErrInvalidToken)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
