package scpitest

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dialEmulator(t *testing.T, e *Emulator) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", e.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestEmulator_ReplyAndRawCapture(t *testing.T) {
	require := require.New(t)

	emu, err := Start(nil)
	require.NoError(err)
	defer emu.Close()

	emu.Reply("*IDN?", "ANRITSU,MT9085A,6201234567,1.00")

	conn := dialEmulator(t, emu)
	_, err = conn.Write([]byte("*IDN?\n"))
	require.NoError(err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("ANRITSU,MT9085A,6201234567,1.00\n", line)

	require.Eventually(func() bool {
		return string(emu.RawReceived()) == "*IDN?\n"
	}, time.Second, 10*time.Millisecond)
}

func TestEmulator_DefaultHandler(t *testing.T) {
	require := require.New(t)

	emu, err := Start(nil)
	require.NoError(err)
	defer emu.Close()

	emu.HandleDefault(func(cmd string) (string, bool) {
		return cmd, true
	})

	conn := dialEmulator(t, emu)
	_, err = conn.Write([]byte("SENS:FREQ:STAR?\n"))
	require.NoError(err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("SENS:FREQ:STAR?\n", line)
}

func TestEmulator_SilentCommand(t *testing.T) {
	require := require.New(t)

	emu, err := Start(nil)
	require.NoError(err)
	defer emu.Close()

	emu.Silent("*OPC?")
	emu.Reply("*IDN?", "id")

	conn := dialEmulator(t, emu)
	_, err = conn.Write([]byte("*OPC?\n*IDN?\n"))
	require.NoError(err)

	// only the second command is answered
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("id\n", line)
}

func TestEmulator_CRLFTerminator(t *testing.T) {
	require := require.New(t)

	emu, err := Start([]byte("\r\n"))
	require.NoError(err)
	defer emu.Close()

	emu.Reply("*IDN?", "id")

	conn := dialEmulator(t, emu)

	// a bare '\n' inside the line must not split the command
	_, err = conn.Write([]byte("*IDN?\r\n"))
	require.NoError(err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(err)
	require.Equal("id\r\n", line)
}

func TestEmulator_ActiveConns(t *testing.T) {
	require := require.New(t)

	emu, err := Start(nil)
	require.NoError(err)
	defer emu.Close()

	require.Equal(0, emu.ActiveConns())

	conn := dialEmulator(t, emu)
	require.Eventually(func() bool {
		return emu.ActiveConns() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(conn.Close())
	require.Eventually(func() bool {
		return emu.ActiveConns() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestEmulator_CloseWithOpenClient(t *testing.T) {
	require := require.New(t)

	emu, err := Start(nil)
	require.NoError(err)

	conn := dialEmulator(t, emu)
	require.Eventually(func() bool {
		return emu.ActiveConns() == 1
	}, time.Second, 10*time.Millisecond)

	// Close must tear the connection down itself and return without
	// waiting for the client side to hang up
	require.NoError(emu.Close())
	require.Equal(0, emu.ActiveConns())

	require.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	require.Error(err)
}

func TestEmulator_CloseMultipleTimes(t *testing.T) {
	require := require.New(t)

	emu, err := Start(nil)
	require.NoError(err)

	require.NoError(emu.Close())
	require.NoError(emu.Close())
}
