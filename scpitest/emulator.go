// Package scpitest provides an in-process SCPI instrument emulator for
// testing SCPI clients against a real TCP listener without physical
// equipment.
//
// The emulator accepts connections on a loopback address, reads
// terminator-delimited command lines, and answers each command through a
// registered handler. It records every raw byte received, so tests can assert
// on exact wire framing, and it tracks active connections, so tests can
// observe connection teardown.
package scpitest

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/paulohvieira/anritsu-mt9085/logger"
)

// defaultKey is the handler table key for the fallback handler.
// A NUL byte can't appear in a SCPI command line, so it can't collide.
const defaultKey = "\x00default"

// Handler produces the response for one received command.
// When ok is false the emulator stays silent, which is the behavior of a real
// instrument receiving a non-query command.
type Handler func(command string) (response string, ok bool)

// Emulator is a fake SCPI instrument listening on a loopback TCP address.
//
// Handlers may be registered at any time, including while connections are
// being served; the handler table is safe for concurrent use.
type Emulator struct {
	listener   net.Listener
	terminator []byte
	handlers   *xsync.MapOf[string, Handler]
	logger     logger.Logger

	raw         syncBuffer
	activeConns atomic.Int32
	closed      atomic.Bool
	wg          sync.WaitGroup

	connMutex sync.Mutex
	conns     []net.Conn
}

// Start creates an Emulator listening on an ephemeral loopback port and
// begins accepting connections. The terminator is used both to split inbound
// command lines and to terminate outbound responses; a nil or empty value
// defaults to a single newline byte.
func Start(terminator []byte) (*Emulator, error) {
	if len(terminator) == 0 {
		terminator = []byte("\n")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	e := &Emulator{
		listener:   listener,
		terminator: append([]byte(nil), terminator...),
		handlers:   xsync.NewMapOf[string, Handler](),
		logger:     logger.With("component", "scpitest", "address", listener.Addr().String()),
	}

	e.wg.Add(1)
	go e.acceptLoop()

	return e, nil
}

// Addr returns the host:port address the emulator listens on.
func (e *Emulator) Addr() string {
	return e.listener.Addr().String()
}

// Host returns the host part of the listen address.
func (e *Emulator) Host() string {
	host, _, _ := net.SplitHostPort(e.listener.Addr().String())
	return host
}

// Port returns the TCP port the emulator listens on.
func (e *Emulator) Port() int {
	return e.listener.Addr().(*net.TCPAddr).Port
}

// Handle registers a handler for the exact command string.
func (e *Emulator) Handle(command string, h Handler) {
	e.handlers.Store(command, h)
}

// Reply registers a fixed response for the exact command string.
func (e *Emulator) Reply(command string, response string) {
	e.Handle(command, func(string) (string, bool) {
		return response, true
	})
}

// Silent registers the exact command string as one that never gets a
// response, which lets tests drive a client into its response timeout.
func (e *Emulator) Silent(command string) {
	e.Handle(command, func(string) (string, bool) {
		return "", false
	})
}

// HandleDefault registers the fallback handler invoked for commands without
// an exact-match handler.
func (e *Emulator) HandleDefault(h Handler) {
	e.handlers.Store(defaultKey, h)
}

// RawReceived returns a copy of every raw byte received so far, terminators
// included, across all connections.
func (e *Emulator) RawReceived() []byte {
	return e.raw.Bytes()
}

// ActiveConns returns the number of currently open connections.
func (e *Emulator) ActiveConns() int {
	return int(e.activeConns.Load())
}

// Close stops the listener, closes all open connections, and waits for the
// serving goroutines to terminate. It is safe to call multiple times.
func (e *Emulator) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := e.listener.Close()

	e.connMutex.Lock()
	for _, conn := range e.conns {
		_ = conn.Close()
	}
	e.conns = nil
	e.connMutex.Unlock()

	e.wg.Wait()

	return err
}

func (e *Emulator) acceptLoop() {
	defer e.wg.Done()

	for {
		conn, err := e.listener.Accept()
		if err != nil {
			return
		}

		e.connMutex.Lock()
		// Close may have snapshotted conns before this accept landed; a
		// connection arriving after that must be closed here or nothing
		// ever closes it.
		if e.closed.Load() {
			e.connMutex.Unlock()
			_ = conn.Close()

			return
		}
		e.conns = append(e.conns, conn)
		e.connMutex.Unlock()

		e.activeConns.Add(1)
		e.wg.Add(1)

		go e.serveConn(conn)
	}
}

// serveConn reads terminator-delimited commands from one connection and
// answers them until the peer disconnects or the emulator closes.
func (e *Emulator) serveConn(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		e.activeConns.Add(-1)
		e.wg.Done()
	}()

	e.logger.Debug("connection accepted", "remote", conn.RemoteAddr().String())

	last := e.terminator[len(e.terminator)-1]
	reader := bufio.NewReader(io.TeeReader(conn, &e.raw))

	for {
		var line []byte
		for {
			chunk, err := reader.ReadBytes(last)
			line = append(line, chunk...)
			if err != nil {
				e.logger.Debug("connection done", "remote", conn.RemoteAddr().String(), "error", err)
				return
			}
			if bytes.HasSuffix(line, e.terminator) {
				break
			}
		}

		command := string(line[:len(line)-len(e.terminator)])

		handler, ok := e.handlers.Load(command)
		if !ok {
			handler, ok = e.handlers.Load(defaultKey)
		}
		if !ok {
			e.logger.Debug("no handler for command", "command", command)
			continue
		}

		response, reply := handler(command)
		if !reply {
			continue
		}

		out := make([]byte, 0, len(response)+len(e.terminator))
		out = append(out, response...)
		out = append(out, e.terminator...)

		if _, err := conn.Write(out); err != nil {
			e.logger.Debug("failed to write response", "error", err)
			return
		}
	}
}

// syncBuffer is a goroutine-safe append-only byte buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]byte(nil), b.buf.Bytes()...)
}
