package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/lc/dnsq/internal/buildinfo"
	"github.com/lc/dnsq/internal/catalog"
	"github.com/lc/dnsq/internal/dnsresolver"
	"github.com/lc/dnsq/internal/log"
	"github.com/lc/dnsq/internal/socket"
	"github.com/lc/dnsq/internal/validate"
)

const defaultDNSPort = 53

// Server answers lookup requests by querying upstream DNS servers.
type Server struct {
	resolver dnsresolver.Querier
	dnsPort  int
	secret   []byte
	limiter  *rate.Limiter
	metrics  *metrics
	lookups  atomic.Int64

	start time.Time
	mux   *http.ServeMux
	srv   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithDNSPort sets the port appended to every upstream address.
func WithDNSPort(port int) Option {
	return func(s *Server) {
		if port > 0 {
			s.dnsPort = port
		}
	}
}

// WithJWTSecret requires an HS256 bearer token on the lookup routes. An
// empty secret leaves them open.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// WithRateLimit caps the API at rps requests per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a new API server backed by resolver.
func New(resolver dnsresolver.Querier, opts ...Option) *Server {
	s := &Server{
		resolver: resolver,
		dnsPort:  defaultDNSPort,
		metrics:  newMetrics(),
		start:    time.Now(),
		mux:      http.NewServeMux(),
	}
	for _, o := range opts {
		o(s)
	}

	s.mux.Handle(PathQuery, s.authorize(s.handleLookup(false)))
	s.mux.Handle(PathQueryDNSSEC, s.authorize(s.handleLookup(true)))
	s.mux.HandleFunc(PathStatus, s.handleStatus)
	s.mux.Handle(PathMetrics, promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withRateLimit(s.mux))
}

// ListenAndServe serves on addr: host:port, or unix:/path for a Unix
// domain socket.
func (s *Server) ListenAndServe(addr string) error {
	var (
		ln  net.Listener
		err error
	)
	if path, ok := socket.SplitAddr(addr); ok {
		ln, err = socket.Listen(path)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return err
	}
	log.Info("api listening", "addr", ln.Addr().String())
	return s.srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

// handleLookup serves both lookup routes. Failures are reported in the
// envelope with HTTP 200.
func (s *Server) handleLookup(dnssec bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		start := time.Now()

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.reply(w, r, start, req, nil, businessError("invalid request body: %v", err))
			return
		}

		res, appErr := s.lookup(r.Context(), req, dnssec)
		s.reply(w, r, start, req, res, appErr)
	}
}

// lookup validates req and runs it against the upstream server.
func (s *Server) lookup(ctx context.Context, req QueryRequest, dnssec bool) (*Result, *AppError) {
	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		return nil, businessError("domain cannot be empty")
	}
	if !validate.IsQueryName(domain) {
		return nil, businessError("invalid domain format")
	}

	recordType := strings.ToUpper(strings.TrimSpace(req.RecordType))
	if recordType == "" {
		return nil, businessError("record type cannot be empty")
	}
	qtype, err := dnsresolver.ParseType(recordType)
	if err != nil {
		return nil, businessError("unsupported record type")
	}

	key := strings.TrimSpace(req.DNSServer)
	if key == "" {
		return nil, businessError("dns provider cannot be empty")
	}
	addr := key
	if a, ok := catalog.Address(key); ok {
		addr = a
	}
	if !validate.IsIPv4(addr) {
		return nil, businessError("invalid dns server ip address")
	}
	upstream := net.JoinHostPort(addr, strconv.Itoa(s.dnsPort))

	s.metrics.inflight.Inc()
	defer s.metrics.inflight.Dec()

	var answers []dnsresolver.Answer
	if dnssec {
		answers, err = s.resolver.QueryDNSSEC(ctx, upstream, domain, qtype)
	} else {
		answers, err = s.resolver.Query(ctx, upstream, domain, qtype)
	}
	if err != nil {
		return nil, &AppError{Code: CodeQueryTimeout, Msg: err.Error()}
	}

	records := make([]Record, 0, len(answers))
	for _, a := range answers {
		rec := Record{Value: a.Value, TTL: a.TTL}
		if dnssec {
			rec.RecordType = a.Type
		}
		records = append(records, rec)
	}
	return &Result{DNSServer: req.DNSServer, RecordType: recordType, Records: records}, nil
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, start time.Time, req QueryRequest, res *Result, appErr *AppError) {
	env := Envelope{Code: CodeOK, Msg: MsgOK, Data: res}
	if appErr != nil {
		env = Envelope{Code: appErr.Code, Msg: appErr.Msg}
	}

	elapsed := time.Since(start)
	s.lookups.Inc()
	s.metrics.observe(r.URL.Path, env.Code, elapsed)

	kv := []any{
		"request_id", RequestID(r.Context()),
		"path", r.URL.Path,
		"domain", req.Domain,
		"type", req.RecordType,
		"server", req.DNSServer,
		"code", env.Code,
		"elapsed", elapsed,
	}
	if appErr != nil {
		log.Warn("lookup failed", append(kv, "msg", appErr.Msg)...)
	} else {
		log.Info("lookup", append(kv, "answers", len(res.Records))...)
	}

	writeJSON(w, http.StatusOK, env)
}

// handleStatus returns the server status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Uptime:  time.Since(s.start),
		Lookups: s.lookups.Load(),
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("error encoding response", "error", err)
	}
}
