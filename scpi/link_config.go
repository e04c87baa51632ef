package scpi

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulohvieira/anritsu-mt9085/logger"
)

// LinkConfig represents the configuration parameters for a SCPI instrument link.
type LinkConfig struct {
	mu sync.RWMutex

	// host specifies the host of the instrument.
	host string

	// port specifies the TCP port number of the instrument's SCPI service.
	port int

	// responseTimeout defines how long a query waits for the response
	// terminator before failing with ErrTimeout.
	// Defaults to 10 seconds.
	responseTimeout time.Duration

	// connectTimeout defines the timeout for establishing the TCP connection.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// writeTimeout defines the deadline applied to each command write.
	// Defaults to 5 seconds.
	writeTimeout time.Duration

	// terminator defines the byte sequence marking the end of one SCPI
	// message, for both outbound commands and inbound responses.
	// It must match the instrument's convention or reads will block until
	// the response timeout.
	// Defaults to a single newline byte.
	terminator []byte

	// readBufferSize defines the size of the buffered reader wrapping the
	// socket. Responses longer than the buffer are still read correctly;
	// the buffer only bounds the per-read chunk size.
	// Defaults to 4096 bytes.
	readBufferSize int

	// logger provides a logger instance for logging link events and errors.
	logger logger.Logger
}

// NewLinkConfig creates a new link configuration with the given host, port
// number, and optional functional options.
//
// It initializes a LinkConfig struct with default values and then applies the
// provided options to customize the configuration.
//
// The host parameter specifies the host of the instrument.
// The port parameter specifies the TCP port number of the instrument's SCPI
// service.
//
// The opts parameter is a variadic argument that accepts a list of LinkOption
// functions to customize the configuration.
// See the documentation for LinkOption and the various WithXXX functions for
// available configuration options.
//
// Returns a pointer to the initialized LinkConfig and an error if any occurred
// during the configuration process.
func NewLinkConfig(host string, port int, opts ...LinkOption) (*LinkConfig, error) {
	cfg := &LinkConfig{
		responseTimeout: 10 * time.Second,
		connectTimeout:  3 * time.Second,
		writeTimeout:    5 * time.Second,
		terminator:      []byte("\n"),
		readBufferSize:  4096,
		logger:          logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Host returns the configured instrument host.
func (cfg *LinkConfig) Host() string {
	return cfg.host
}

// Port returns the configured instrument TCP port.
func (cfg *LinkConfig) Port() int {
	return cfg.port
}

// Address returns the instrument address in host:port form.
func (cfg *LinkConfig) Address() string {
	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

// ResponseTimeout returns the configured response timeout.
func (cfg *LinkConfig) ResponseTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.responseTimeout
}

// ConnectTimeout returns the configured connect timeout.
func (cfg *LinkConfig) ConnectTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.connectTimeout
}

// WriteTimeout returns the configured write timeout.
func (cfg *LinkConfig) WriteTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.writeTimeout
}

// Terminator returns the configured line terminator.
func (cfg *LinkConfig) Terminator() []byte {
	return cfg.terminator
}

// ReadBufferSize returns the configured read buffer size.
func (cfg *LinkConfig) ReadBufferSize() int {
	return cfg.readBufferSize
}

// LinkOption represents a functional option for configuring a LinkConfig.
type LinkOption interface {
	apply(*LinkConfig) error
}

type linkOptFunc struct {
	name      string
	runtime   bool
	applyFunc func(*LinkConfig) error
}

func (o *linkOptFunc) apply(cfg *LinkConfig) error { return o.applyFunc(cfg) }

func newLinkOptFunc(name string, runtime bool, f func(*LinkConfig) error) *linkOptFunc {
	return &linkOptFunc{
		name:      name,
		runtime:   runtime,
		applyFunc: f,
	}
}

// withHost sets the host of the instrument.
// It returns a LinkOption that validates the host and updates the configuration.
// An error is returned if the configuration is nil.
func withHost(host string) LinkOption {
	return newLinkOptFunc("withHost", false, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		// Check if it's a valid IP address
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		// If not an IP, check if it's a valid domain name
		host = strings.TrimPrefix(host, ".")
		host = strings.TrimSuffix(host, ".")
		if _, err := net.LookupHost(host); err == nil {
			cfg.host = host
			return nil
		}

		return errors.New("invalid host")
	})
}

// withPort sets the TCP port number of the instrument's SCPI service.
// It returns a LinkOption that validates the port number and updates the configuration.
// An error is returned if the port number is out of the valid range (1-65535) or if the configuration is nil.
func withPort(port int) LinkOption {
	return newLinkOptFunc("withPort", false, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithResponseTimeout sets the timeout for reading a query response.
// It returns a LinkOption that validates the timeout value and updates the configuration.
// An error is returned if the timeout is outside the valid range (0.01-300 seconds) or if the configuration is nil.
//
// The default value is 10 seconds.
//
// This option can be changed at runtime.
func WithResponseTimeout(val time.Duration) LinkOption {
	return newLinkOptFunc("WithResponseTimeout", true, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 10*time.Millisecond || val > 300*time.Second {
			return errors.New("response timeout out of range [0.01, 300]")
		}
		cfg.responseTimeout = val

		return nil
	})
}

// WithConnectTimeout sets the timeout for establishing the TCP connection.
// It returns a LinkOption that validates the timeout value and updates the configuration.
// An error is returned if the timeout is outside the valid range (0.1-30 seconds) or if the configuration is nil.
//
// The default value is 3 seconds.
//
// This option can be changed at runtime.
func WithConnectTimeout(val time.Duration) LinkOption {
	return newLinkOptFunc("WithConnectTimeout", true, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("connect timeout out of range [0.1, 30]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithWriteTimeout sets the deadline applied to each command write.
// It returns a LinkOption that validates the timeout value and updates the configuration.
// An error is returned if the timeout is outside the valid range (0.01-60 seconds) or if the configuration is nil.
//
// The default value is 5 seconds.
//
// This option can be changed at runtime.
func WithWriteTimeout(val time.Duration) LinkOption {
	return newLinkOptFunc("WithWriteTimeout", true, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 10*time.Millisecond || val > 60*time.Second {
			return errors.New("write timeout out of range [0.01, 60]")
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithTerminator sets the line terminator appended to outbound commands and
// expected at the end of inbound responses.
//
// The terminator must match the instrument's convention, commonly "\n" or
// "\r\n". A mismatch causes every query to block until the response timeout.
//
// An error is returned if the terminator is empty or if the provided
// LinkConfig is nil.
//
// The default value is "\n".
//
// This option can't be changed at runtime.
func WithTerminator(term []byte) LinkOption {
	return newLinkOptFunc("WithTerminator", false, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if len(term) == 0 {
			return errors.New("terminator is empty")
		}

		cfg.terminator = append([]byte(nil), term...)

		return nil
	})
}

// WithReadBufferSize sets the size of the buffered reader wrapping the socket.
//
// The size must be within the range of 64 bytes to 1 MiB.
// An error is returned if the size is invalid or if the provided LinkConfig is nil.
//
// The default value is 4096.
//
// This option can't be changed at runtime.
func WithReadBufferSize(size int) LinkOption {
	return newLinkOptFunc("WithReadBufferSize", false, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if size < 64 || size > 1<<20 {
			return errors.New("read buffer size out of range [64, 1048576]")
		}

		cfg.readBufferSize = size

		return nil
	})
}

// WithLogger sets the logger for the link.
// It returns a LinkOption that updates the configuration with the provided logger.
// An error is returned if the configuration is nil.
//
// The default logger is the global logger instance.
//
// This option can't be changed at runtime.
func WithLogger(l logger.Logger) LinkOption {
	return newLinkOptFunc("WithLogger", false, func(cfg *LinkConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		cfg.logger = l

		return nil
	})
}
