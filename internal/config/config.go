// Package config loads, validates and writes the dnsq configuration file.
// The same file configures the dnsqd daemon (server section) and the dnsq
// CLI (client section).
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lc/dnsq/internal/filesys"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultConfigPath is the config file location relative to the home directory.
	DefaultConfigPath = ".dnsq/config.yaml"
	// DefaultListen is where dnsqd serves the lookup API.
	DefaultListen = "127.0.0.1:8080"
	// DefaultEndpoint is where dnsq sends lookup requests.
	DefaultEndpoint = "http://127.0.0.1:8080"
	// DefaultQueryTimeout bounds a single upstream DNS exchange.
	DefaultQueryTimeout = 10 * time.Second
	// DefaultClientTimeout bounds a single lookup request made by the CLI.
	DefaultClientTimeout = 15 * time.Second
	// DefaultDNSPort is appended to resolver addresses.
	DefaultDNSPort = 53
)

// Config holds the application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
}

// ServerConfig configures dnsqd.
type ServerConfig struct {
	// Listen is host:port, or unix:/path for a Unix domain socket.
	Listen       string        `yaml:"listen"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	DNSPort      int           `yaml:"dns_port"`
	Retries      uint          `yaml:"retries"`
	JWTSecret    string        `yaml:"jwt_secret"`
	// RateLimit is requests per second across the API; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
}

// ClientConfig configures the dnsq CLI.
type ClientConfig struct {
	// Endpoint is an http(s) base URL, or unix:/path for a Unix domain socket.
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Token    string        `yaml:"token"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
	Save(*Config) error
	Path() string
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs     filesys.ReadWriteFS
	path   string
	getenv func(string) string
}

var _ Provider = (*FSProvider)(nil)

// New creates a provider for ~/.dnsq/config.yaml. If the home directory
// cannot be determined the path is resolved against the working directory.
func New() *FSProvider {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not determine home directory: %v\n", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath))
}

// NewWithPath creates a provider reading path through fs.
func NewWithPath(fs filesys.ReadWriteFS, path string) *FSProvider {
	return &FSProvider{
		fs:     fs,
		path:   path,
		getenv: os.Getenv,
	}
}

// WithEnv replaces the environment lookup; tests use it to avoid touching
// the process environment.
func (p *FSProvider) WithEnv(getenv func(string) string) *FSProvider {
	p.getenv = getenv
	return p
}

// Path returns the file the provider reads and writes.
func (p *FSProvider) Path() string { return p.path }

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       DefaultListen,
			QueryTimeout: DefaultQueryTimeout,
			DNSPort:      DefaultDNSPort,
		},
		Client: ClientConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  DefaultClientTimeout,
		},
	}
}

// Load reads the configuration file, fills unset fields with defaults,
// applies the BIND_ADDRESS, BIND_PORT and QUERY_TIMEOUT environment
// overrides and validates the result.
func (p *FSProvider) Load() (*Config, error) {
	cfg, err := p.loadAndParse()
	if errors.Is(err, ErrNoConfig) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(p.getenv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Save writes cfg to the provider path. Writes go through
// filesys.AtomicWrite when the underlying FS supports it.
func (p *FSProvider) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if ops, ok := p.fs.(filesys.FileOps); ok {
		return filesys.AtomicWrite(ops, p.path, data, 0o600)
	}
	if err := p.ensureConfigDir(); err != nil {
		return err
	}
	return p.fs.WriteFile(p.path, data, 0o600)
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = multierr.Append(errs, errors.New("server.listen cannot be empty"))
	} else if !strings.HasPrefix(c.Server.Listen, "unix:") {
		if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("server.listen: %w", err))
		}
	}
	if c.Server.QueryTimeout < time.Second {
		errs = multierr.Append(errs, errors.New("server.query_timeout must be at least 1 second"))
	}
	if c.Server.DNSPort <= 0 || c.Server.DNSPort > 65535 {
		errs = multierr.Append(errs, errors.New("server.dns_port must be 1..65535"))
	}
	if c.Server.RateLimit < 0 {
		errs = multierr.Append(errs, errors.New("server.rate_limit cannot be negative"))
	}
	if strings.TrimSpace(c.Client.Endpoint) == "" {
		errs = multierr.Append(errs, errors.New("client.endpoint cannot be empty"))
	}
	if c.Client.Timeout < time.Second {
		errs = multierr.Append(errs, errors.New("client.timeout must be at least 1 second"))
	}
	return errs
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.QueryTimeout == 0 {
		c.Server.QueryTimeout = def.Server.QueryTimeout
	}
	if c.Server.DNSPort == 0 {
		c.Server.DNSPort = def.Server.DNSPort
	}
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = def.Client.Endpoint
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = def.Client.Timeout
	}
}

// applyEnv applies BIND_ADDRESS, BIND_PORT and QUERY_TIMEOUT (seconds).
func (c *Config) applyEnv(getenv func(string) string) error {
	var errs error
	addr, port := getenv("BIND_ADDRESS"), getenv("BIND_PORT")
	if (addr != "" || port != "") && !strings.HasPrefix(c.Server.Listen, "unix:") {
		host, curPort, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			host, curPort = "127.0.0.1", "8080"
		}
		if addr != "" {
			host = addr
		}
		if port != "" {
			if _, err := strconv.ParseUint(port, 10, 16); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("BIND_PORT %q: %w", port, err))
			} else {
				curPort = port
			}
		}
		c.Server.Listen = net.JoinHostPort(host, curPort)
	}
	if v := getenv("QUERY_TIMEOUT"); v != "" {
		secs, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("QUERY_TIMEOUT %q: %w", v, err))
		} else {
			c.Server.QueryTimeout = time.Duration(secs) * time.Second
		}
	}
	return errs
}

func (p *FSProvider) ensureConfigDir() error {
	dir := filepath.Dir(p.path)
	if _, err := p.fs.Stat(dir); os.IsNotExist(err) {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return nil
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}
	return &cfg, nil
}
