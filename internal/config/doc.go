// Package config provides configuration management for dnsq and dnsqd.
//
// # Configuration Structure
//
//	server:
//	  listen: 127.0.0.1:8080          # host:port or unix:/path/to/dnsqd.socket
//	  query_timeout: 10s              # upstream DNS exchange timeout
//	  dns_port: 53                    # port appended to resolver addresses
//	  retries: 0                      # extra attempts per DNS exchange
//	  jwt_secret: ""                  # when set, the API requires a bearer JWT
//	  rate_limit: 0                   # API requests per second, 0 = unlimited
//	client:
//	  endpoint: http://127.0.0.1:8080 # base URL or unix:/path/to/dnsqd.socket
//	  timeout: 15s                    # per lookup request
//	  token: ""                       # bearer token sent to the API
//
// # Basic Usage
//
//	cfg, err := config.New().Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A missing file yields Default(). Unset fields are filled with defaults
// before validation, so a file may set only the keys it cares about.
//
// # Environment
//
// BIND_ADDRESS and BIND_PORT override the host and port of server.listen;
// QUERY_TIMEOUT overrides server.query_timeout in whole seconds.
//
// # Validation
//
// Validate reports every problem at once, combined with go.uber.org/multierr.
// Load wraps validation failures in ErrInvalidConfig.
package config
