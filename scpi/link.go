package scpi

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulohvieira/anritsu-mt9085/logger"
)

// Link represents one SCPI instrument link. It owns a single TCP connection
// to one instrument address and exchanges newline-delimited ASCII text over
// it: commands go out with the configured terminator appended, and query
// responses are read back up to the terminator.
//
// A Link performs synchronous blocking I/O with at most one request in
// flight. It is not safe to pipeline queries from multiple goroutines; the
// internal mutex keeps the connection state consistent but gives no ordering
// guarantee between concurrent callers.
type Link struct {
	cfg    *LinkConfig
	logger logger.Logger

	connMutex sync.Mutex // guards conn and reader
	conn      net.Conn
	reader    *bufio.Reader

	state atomic.Int32

	metrics LinkMetrics
}

// NewLink creates a new Link with the given configuration.
// The link starts in the not-connected state; call Connect to open the
// connection, or use Session for scoped acquisition.
// Returns an error if the configuration is nil.
func NewLink(cfg *LinkConfig) (*Link, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	link := &Link{
		cfg:    cfg,
		logger: cfg.logger,
	}

	return link, nil
}

// State returns the current link state.
func (l *Link) State() LinkState {
	return LinkState(l.state.Load())
}

// GetConfig returns the configuration associated with the link.
func (l *Link) GetConfig() *LinkConfig {
	return l.cfg
}

// GetLogger returns the logger associated with the link.
func (l *Link) GetLogger() logger.Logger {
	return l.logger
}

// GetMetrics returns the metrics associated with the link.
func (l *Link) GetMetrics() *LinkMetrics {
	return &l.metrics
}

// UpdateConfigOptions applies runtime-updatable configuration options to the
// link's configuration. Options that can't be changed at runtime are rejected
// with an error.
func (l *Link) UpdateConfigOptions(opts ...LinkOption) error {
	for _, opt := range opts {
		linkOpt, ok := opt.(*linkOptFunc)
		if !ok {
			return errors.New("invalid LinkOption type")
		}

		if !linkOpt.runtime {
			return fmt.Errorf("option %s can't be changed at runtime", linkOpt.name)
		}

		if err := opt.apply(l.cfg); err != nil {
			return err
		}
	}

	return nil
}

// Connect opens the TCP connection to the configured instrument address.
//
// It fails with a wrapped dial error if the host is unreachable, the port
// refuses, or the attempt exceeds the configured connect timeout. Calling
// Connect while the link is already connected fails with ErrAlreadyConnected;
// the link never silently reuses or replaces an open connection.
func (l *Link) Connect(ctx context.Context) error {
	l.connMutex.Lock()
	defer l.connMutex.Unlock()

	if l.conn != nil {
		return ErrAlreadyConnected
	}

	addr := l.cfg.Address()
	l.logger.Info("connecting to instrument", "address", addr)

	dialer := net.Dialer{Timeout: l.cfg.ConnectTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		l.metrics.incConnectErrCount()
		l.logger.Error("failed to connect to instrument", "address", addr, "error", err)

		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	l.conn = conn
	l.reader = bufio.NewReaderSize(conn, l.cfg.ReadBufferSize())
	l.state.Store(int32(ConnectedState))
	l.metrics.incConnectCount()

	l.logger.Info("instrument connected", "address", addr)

	return nil
}

// Disconnect closes the connection if open and transitions the link to the
// not-connected state. It is a no-op when the link is already disconnected
// and always returns nil: close errors on an already-broken socket carry no
// actionable information and are swallowed.
//
// Any response bytes still buffered from the socket are dropped.
func (l *Link) Disconnect() error {
	l.connMutex.Lock()
	defer l.connMutex.Unlock()

	if l.conn == nil {
		return nil
	}

	if err := l.conn.Close(); err != nil {
		l.logger.Debug("close error ignored", "method", "Disconnect", "error", err)
	}

	l.conn = nil
	l.reader = nil
	l.state.Store(int32(NotConnectedState))

	l.logger.Info("instrument disconnected", "address", l.cfg.Address())

	return nil
}

// Send transmits one SCPI command to the instrument. The configured
// terminator is appended to the command before writing; the command itself
// is passed through without validation.
//
// It fails with ErrNotConnected when the link is not connected, and with a
// wrapped transport error when the write fails or exceeds the configured
// write timeout.
func (l *Link) Send(command string) error {
	l.connMutex.Lock()
	defer l.connMutex.Unlock()

	return l.send(command)
}

// Query transmits one SCPI query command and reads the response line.
// The returned response has the terminator stripped. Bytes delivered past
// the terminator stay buffered and are consumed by the next Query.
//
// It fails with ErrNotConnected when the link is not connected, with
// ErrTimeout when no terminator arrives within the configured response
// timeout, and with a wrapped transport error on any other write or read
// failure.
//
// After ErrTimeout the receive stream may be desynchronized: the response
// can still arrive later and would then be read as the answer to the next
// query. Callers that retry after a timeout should Disconnect and reconnect
// first to resynchronize.
func (l *Link) Query(command string) (string, error) {
	l.connMutex.Lock()
	defer l.connMutex.Unlock()

	if l.conn == nil {
		return "", ErrNotConnected
	}

	if err := l.send(command); err != nil {
		l.metrics.incQueryErrCount()
		return "", err
	}

	rsp, err := l.readResponse()
	if err != nil {
		l.metrics.incQueryErrCount()

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			l.metrics.incQueryTimeoutCount()
			l.logger.Warn("query response timeout",
				"command", command, "timeout", l.cfg.ResponseTimeout())

			return "", fmt.Errorf("query %q: %w", command, ErrTimeout)
		}

		return "", fmt.Errorf("query %q: %w", command, err)
	}

	l.metrics.incQueryCount()

	if l.logger.Level() == logger.DebugLevel {
		l.logger.Debug("response received", "command", command, "response", rsp)
	}

	return rsp, nil
}

// Session acquires the link for the duration of fn: it connects, runs fn,
// and disconnects unconditionally, whether fn returns normally or fails.
// The error returned by fn is propagated to the caller after the connection
// has been released, so no socket outlives the session on any exit path.
func (l *Link) Session(ctx context.Context, fn func(link *Link) error) error {
	if fn == nil {
		return errors.New("session body is nil")
	}

	if err := l.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		_ = l.Disconnect()
	}()

	return fn(l)
}

// send writes command plus terminator to the socket.
// The caller must hold connMutex.
func (l *Link) send(command string) error {
	if l.conn == nil {
		return ErrNotConnected
	}

	term := l.cfg.Terminator()
	buf := make([]byte, 0, len(command)+len(term))
	buf = append(buf, command...)
	buf = append(buf, term...)

	if err := l.conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout())); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	// net.Conn.Write returns only after the whole buffer is written or the
	// write failed, so no partial-write loop is needed here.
	if _, err := l.conn.Write(buf); err != nil {
		l.metrics.incCommandErrCount()
		l.logger.Error("failed to send command", "command", command, "error", err)

		return fmt.Errorf("send %q: %w", command, err)
	}

	l.metrics.incCommandSendCount()

	if l.logger.Level() == logger.DebugLevel {
		l.logger.Debug("command sent", "command", command)
	}

	return nil
}

// readResponse reads from the socket until the configured terminator is
// observed, under a single deadline covering the whole read. The terminator
// is stripped from the returned text; anything the transport delivered past
// it stays buffered in the reader for the next query.
//
// On a deadline error, bytes already consumed into line are lost while the
// rest of a late response stays in the socket, leaving the stream
// desynchronized until the link reconnects.
// The caller must hold connMutex.
func (l *Link) readResponse() (string, error) {
	term := l.cfg.Terminator()
	last := term[len(term)-1]

	if err := l.conn.SetReadDeadline(time.Now().Add(l.cfg.ResponseTimeout())); err != nil {
		return "", fmt.Errorf("set read deadline: %w", err)
	}

	var line []byte
	for {
		chunk, err := l.reader.ReadBytes(last)
		line = append(line, chunk...)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}

		// ReadBytes stops at the terminator's final byte; a multi-byte
		// terminator still needs a full suffix match.
		if bytes.HasSuffix(line, term) {
			return string(line[:len(line)-len(term)]), nil
		}
	}
}
