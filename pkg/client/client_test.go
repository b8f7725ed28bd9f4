package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/dnsq/internal/buildinfo"
	"github.com/lc/dnsq/internal/socket"
	"github.com/lc/dnsq/pkg/api"
)

type ClientTestSuite struct {
	suite.Suite
	handler http.HandlerFunc
	server  *httptest.Server

	mu   sync.Mutex
	last *http.Request
	body api.QueryRequest
}

func (s *ClientTestSuite) SetupTest() {
	s.last = nil
	s.body = api.QueryRequest{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.last = r
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&s.body)
		}
		h := s.handler
		s.mu.Unlock()
		h(w, r)
	}))
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) handle(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *ClientTestSuite) lastRequest() (*http.Request, api.QueryRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.body
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (s *ClientTestSuite) TestNew() {
	testCases := []struct {
		endpoint string
		ok       bool
	}{
		{endpoint: "http://127.0.0.1:8080", ok: true},
		{endpoint: "https://dnsq.example.com/", ok: true},
		{endpoint: "unix:/run/dnsq.sock", ok: true},
		{endpoint: "unix:", ok: false},
		{endpoint: "127.0.0.1:8080", ok: false},
		{endpoint: "ftp://host", ok: false},
		{endpoint: "http://", ok: false},
	}

	for _, tc := range testCases {
		s.Run(tc.endpoint, func() {
			c, err := New(tc.endpoint)
			if tc.ok {
				s.Require().NoError(err)
				s.NotNil(c)
				return
			}
			s.ErrorIs(err, ErrBadEndpoint)
		})
	}
}

func (s *ClientTestSuite) TestQuery() {
	s.handle(reply(`{"code":"1","msg":"ok","data":{"dnsServer":"google","recordType":"A","record":[{"value":"1.2.3.4","ttl":300}]}}`))

	c, err := New(s.server.URL+"/", WithToken("tkn"))
	s.Require().NoError(err)

	res, err := c.Query(context.Background(), api.QueryRequest{Domain: "example.com", RecordType: "A", DNSServer: "google"})
	s.Require().NoError(err)
	s.Equal(&api.Result{DNSServer: "google", RecordType: "A", Records: []api.Record{{Value: "1.2.3.4", TTL: 300}}}, res)

	last, body := s.lastRequest()
	s.Require().NotNil(last)
	s.Equal(api.PathQuery, last.URL.Path)
	s.Equal("Bearer tkn", last.Header.Get("Authorization"))
	s.Equal(buildinfo.UserAgent(), last.Header.Get("User-Agent"))
	s.Equal("application/json", last.Header.Get("Content-Type"))
	s.Equal(api.QueryRequest{Domain: "example.com", RecordType: "A", DNSServer: "google"}, body)
}

func (s *ClientTestSuite) TestQueryDNSSECPath() {
	s.handle(reply(`{"code":"1","msg":"ok","data":{"dnsServer":"ali","recordType":"A","record":[{"value":"1.2.3.4","ttl":60,"recordType":"A"}]}}`))

	c, err := New(s.server.URL)
	s.Require().NoError(err)

	res, err := c.QueryDNSSEC(context.Background(), api.QueryRequest{Domain: "example.com", RecordType: "A", DNSServer: "ali"})
	s.Require().NoError(err)
	last, _ := s.lastRequest()
	s.Equal(api.PathQueryDNSSEC, last.URL.Path)
	s.Empty(last.Header.Get("Authorization"))
	s.Equal("A", res.Records[0].RecordType)
}

func (s *ClientTestSuite) TestEnvelopeErrors() {
	testCases := []struct {
		name string
		body string
		code string
		msg  string
	}{
		{name: "business", body: `{"code":"BUS500","msg":"invalid domain format","data":null}`, code: api.CodeBusiness, msg: "invalid domain format"},
		{name: "empty string data", body: `{"code":"QUERY_DNS_TIMEOUT","msg":"timed out","data":""}`, code: api.CodeQueryTimeout, msg: "timed out"},
		{name: "generic", body: `{"code":"0","msg":"boom"}`, code: api.CodeError, msg: "boom"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.handle(reply(tc.body))
			c, err := New(s.server.URL)
			s.Require().NoError(err)

			_, err = c.Query(context.Background(), api.QueryRequest{})
			var appErr *api.AppError
			s.Require().True(errors.As(err, &appErr))
			s.Equal(tc.code, appErr.Code)
			s.Equal(tc.msg, appErr.Msg)
		})
	}
}

func (s *ClientTestSuite) TestOKWithoutData() {
	s.handle(reply(`{"code":"1","msg":"ok","data":null}`))
	c, err := New(s.server.URL)
	s.Require().NoError(err)

	res, err := c.Query(context.Background(), api.QueryRequest{})
	s.Require().NoError(err)
	s.Empty(res.Records)
}

func (s *ClientTestSuite) TestStatusError() {
	s.handle(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	c, err := New(s.server.URL)
	s.Require().NoError(err)

	_, err = c.Query(context.Background(), api.QueryRequest{})
	var statusErr *StatusError
	s.Require().True(errors.As(err, &statusErr))
	s.Equal(http.StatusBadGateway, statusErr.StatusCode)
	s.Contains(statusErr.Error(), "502")
}

func (s *ClientTestSuite) TestMalformedBody() {
	s.handle(reply(`<html>`))
	c, err := New(s.server.URL)
	s.Require().NoError(err)

	_, err = c.Query(context.Background(), api.QueryRequest{})
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to decode response")
}

func (s *ClientTestSuite) TestTimeout() {
	release := make(chan struct{})
	defer close(release)
	s.handle(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c, err := New(s.server.URL, WithTimeout(50*time.Millisecond))
	s.Require().NoError(err)

	_, err = c.Query(context.Background(), api.QueryRequest{})
	s.Require().Error(err)
	var netErr net.Error
	s.Require().True(errors.As(err, &netErr))
	s.True(netErr.Timeout())
}

func (s *ClientTestSuite) TestStatus() {
	s.handle(reply(`{"uptime":1000000000,"lookups":7,"version":"v1","commit":"abc"}`))
	c, err := New(s.server.URL)
	s.Require().NoError(err)

	st, err := c.Status(context.Background())
	s.Require().NoError(err)
	s.Equal(api.StatusResponse{Uptime: time.Second, Lookups: 7, Version: "v1", Commit: "abc"}, st)
	last, _ := s.lastRequest()
	s.Equal(http.MethodGet, last.Method)
}

func (s *ClientTestSuite) TestUnixSocket() {
	dir, err := os.MkdirTemp("", "dnsq")
	s.Require().NoError(err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "d.sock")

	ln, err := socket.Listen(path)
	s.Require().NoError(err)
	srv := &http.Server{Handler: reply(`{"code":"1","msg":"ok","data":{"dnsServer":"9.9.9.9","recordType":"NS","record":[]}}`)}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	c, err := New(socket.UnixPrefix + path)
	s.Require().NoError(err)

	res, err := c.Query(context.Background(), api.QueryRequest{Domain: "example.com", RecordType: "NS", DNSServer: "9.9.9.9"})
	s.Require().NoError(err)
	s.Equal("9.9.9.9", res.DNSServer)
	s.Empty(res.Records)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
