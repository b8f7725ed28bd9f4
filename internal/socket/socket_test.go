package socket_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/dnsq/internal/socket"
)

type SocketTestSuite struct {
	suite.Suite
	tmpDir   string
	sockPath string
	mockProc *mockProcessChecker
	sock     *socket.Socket
}

type mockProcessChecker struct {
	isRunning bool
}

func (m *mockProcessChecker) IsRunning(_ string) bool {
	return m.isRunning
}

func (s *SocketTestSuite) SetupTest() {
	var err error
	// short base dir: sun_path is limited to ~104 bytes on darwin
	s.tmpDir, err = os.MkdirTemp("", "dnsq-sock-*")
	s.Require().NoError(err)

	s.sockPath = filepath.Join(s.tmpDir, "run", "dnsqd.sock")
	s.mockProc = &mockProcessChecker{isRunning: true}

	cfg := socket.DefaultConfig()
	cfg.StartupTimeout = 500 * time.Millisecond
	cfg.RetryInterval = 50 * time.Millisecond
	s.sock = socket.New(cfg, s.mockProc)
}

func (s *SocketTestSuite) TearDownTest() {
	if s.tmpDir != "" {
		os.RemoveAll(s.tmpDir)
	}
}

func (s *SocketTestSuite) TestSplitAddr() {
	testCases := []struct {
		in     string
		path   string
		isUnix bool
	}{
		{in: "unix:/var/run/dnsqd.socket", path: "/var/run/dnsqd.socket", isUnix: true},
		{in: "127.0.0.1:8080", path: "127.0.0.1:8080"},
		{in: "http://127.0.0.1:8080", path: "http://127.0.0.1:8080"},
	}
	for _, tc := range testCases {
		s.Run(tc.in, func() {
			path, isUnix := socket.SplitAddr(tc.in)
			s.Equal(tc.path, path)
			s.Equal(tc.isUnix, isUnix)
		})
	}
}

func (s *SocketTestSuite) TestDefaultConfig() {
	cfg := socket.DefaultConfig()

	s.Equal(5*time.Second, cfg.StartupTimeout)
	s.Equal(250*time.Millisecond, cfg.RetryInterval)
	s.Equal("dnsqd", cfg.ProcessName)
	s.Contains([]os.FileMode{0o666, 0o600}, cfg.Permissions)
}

func (s *SocketTestSuite) TestListenCreatesDirectory() {
	l, err := s.sock.Listen(s.sockPath)
	s.Require().NoError(err)
	defer l.Close()

	_, err = os.Stat(s.sockPath)
	s.NoError(err)
}

func (s *SocketTestSuite) TestListenInUse() {
	l, err := s.sock.Listen(s.sockPath)
	s.Require().NoError(err)
	defer l.Close()

	_, err = s.sock.Listen(s.sockPath)
	s.ErrorIs(err, socket.ErrAddressInUse)
}

func (s *SocketTestSuite) TestListenReplacesStaleFile() {
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.sockPath), 0o755))
	s.Require().NoError(os.WriteFile(s.sockPath, nil, 0o600))

	l, err := s.sock.Listen(s.sockPath)
	s.Require().NoError(err)
	l.Close()
}

func (s *SocketTestSuite) TestConnect() {
	l, err := s.sock.Listen(s.sockPath)
	s.Require().NoError(err)
	defer l.Close()

	go func() {
		conn, _ := l.Accept()
		if conn != nil {
			conn.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := s.sock.Connect(ctx, s.sockPath)
	s.Require().NoError(err)
	conn.Close()
}

func (s *SocketTestSuite) TestConnectNotRunning() {
	s.mockProc.isRunning = false

	conn, err := s.sock.Connect(context.Background(), s.sockPath)
	s.ErrorIs(err, socket.ErrNotRunning)
	s.Nil(conn)
}

func (s *SocketTestSuite) TestConnectCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn, err := s.sock.Connect(ctx, s.sockPath)
	s.ErrorIs(err, context.Canceled)
	s.Nil(conn)
}

func (s *SocketTestSuite) TestRetryUntilListening() {
	cfg := socket.DefaultConfig()
	cfg.StartupTimeout = 2 * time.Second
	cfg.RetryInterval = 50 * time.Millisecond
	s.sock = socket.New(cfg, s.mockProc)

	ready := make(chan net.Listener, 1)
	go func() {
		time.Sleep(300 * time.Millisecond)
		l, err := s.sock.Listen(s.sockPath)
		if err != nil {
			ready <- nil
			return
		}
		ready <- l
		conn, _ := l.Accept()
		if conn != nil {
			conn.Close()
		}
	}()

	start := time.Now()
	conn, err := s.sock.Connect(context.Background(), s.sockPath)
	s.Require().NoError(err)
	conn.Close()
	s.GreaterOrEqual(time.Since(start), 300*time.Millisecond)

	if l := <-ready; l != nil {
		l.Close()
	}
}

func TestSocketSuite(t *testing.T) {
	suite.Run(t, new(SocketTestSuite))
}
