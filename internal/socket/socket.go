// Package socket handles the Unix domain socket transport between dnsq and
// dnsqd. Addresses of the form "unix:/path" select it; anything else is
// treated as TCP by the callers.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// UnixPrefix marks an address as a Unix domain socket path.
const UnixPrefix = "unix:"

var (
	// ErrAddressInUse is returned when attempting to listen on a socket that is already in use.
	ErrAddressInUse = errors.New("address already in use")
	// ErrNotRunning is returned when the daemon process is not running.
	ErrNotRunning = errors.New("daemon not running")
)

// SplitAddr reports whether addr names a Unix socket and returns the
// address without the prefix.
func SplitAddr(addr string) (path string, isUnix bool) {
	if strings.HasPrefix(addr, UnixPrefix) {
		return strings.TrimPrefix(addr, UnixPrefix), true
	}
	return addr, false
}

// Config controls dial retries and the permissions of the socket file.
type Config struct {
	// StartupTimeout is the maximum time to wait for the daemon to come up.
	StartupTimeout time.Duration
	// RetryInterval is the interval between connection attempts.
	RetryInterval time.Duration
	// Permissions defines the socket file permissions.
	Permissions os.FileMode
	// ProcessName is the daemon executable looked up while retrying.
	ProcessName string
}

// DefaultConfig returns a 5s startup timeout, 250ms retry interval,
// OS-appropriate permissions and "dnsqd" as the process name.
func DefaultConfig() *Config {
	return &Config{
		StartupTimeout: 5 * time.Second,
		RetryInterval:  250 * time.Millisecond,
		Permissions:    getDefaultPermissions(),
		ProcessName:    "dnsqd",
	}
}

// Socket dials and listens on Unix domain sockets.
type Socket struct {
	config    *Config
	procCheck ProcessChecker
	startTime time.Time
	mu        sync.RWMutex
}

// New creates a Socket. A nil cfg selects DefaultConfig.
func New(cfg *Config, checker ProcessChecker) *Socket {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Socket{
		config:    cfg,
		procCheck: checker,
		startTime: time.Now(),
	}
}

// DialContext connects to path with the default configuration. Its
// signature matches http.Transport.DialContext once the path is bound.
func DialContext(ctx context.Context, path string) (net.Conn, error) {
	return New(nil, &DefaultProcessChecker{}).Connect(ctx, path)
}

// Listen creates a listener at path with the default configuration.
func Listen(path string) (net.Listener, error) {
	return New(nil, &DefaultProcessChecker{}).Listen(path)
}

// Connect dials path, retrying while the daemon may still be starting.
// It gives up with ErrNotRunning once the startup timeout has passed or
// the daemon process is not found.
func (s *Socket) Connect(ctx context.Context, path string) (net.Conn, error) {
	deadline := time.Now().Add(s.config.StartupTimeout)

	for {
		conn, err := (&net.Dialer{}).DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}

		if !s.shouldRetry(deadline) {
			return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.config.RetryInterval):
		}
	}
}

// Listen creates the socket directory if needed, removes a stale socket
// file and listens on path. ErrAddressInUse is returned when another
// process is already serving on it.
func (s *Socket) Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}

	if err := s.checkExistingSocket(path); err != nil {
		return nil, err
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("creating socket listener: %w", err)
	}

	if err := os.Chmod(path, s.config.Permissions); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}

	return listener, nil
}

func (s *Socket) shouldRetry(deadline time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if time.Now().After(deadline) {
		return false
	}
	if time.Since(s.startTime) < 2*time.Second {
		return true
	}
	return s.procCheck.IsRunning(s.config.ProcessName)
}

func (s *Socket) checkExistingSocket(path string) error {
	conn, err := net.Dial("unix", path)
	if err == nil {
		_ = conn.Close()
		return ErrAddressInUse
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	return nil
}

func getDefaultPermissions() os.FileMode {
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd":
		return 0o666
	default:
		return 0o600
	}
}
