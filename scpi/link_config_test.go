package scpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paulohvieira/anritsu-mt9085/logger"
)

func TestNewLinkConfig(t *testing.T) {
	require := require.New(t)

	t.Run("Valid Configuration", func(t *testing.T) {
		cfg, err := NewLinkConfig("192.168.1.2", 2288,
			WithResponseTimeout(20*time.Second),
			WithConnectTimeout(5*time.Second),
			WithWriteTimeout(10*time.Second),
			WithTerminator([]byte("\r\n")),
			WithReadBufferSize(8192),
		)
		require.NoError(err)
		require.Equal("192.168.1.2", cfg.Host())
		require.Equal(2288, cfg.Port())
		require.Equal("192.168.1.2:2288", cfg.Address())
		require.Equal(20*time.Second, cfg.ResponseTimeout())
		require.Equal(5*time.Second, cfg.ConnectTimeout())
		require.Equal(10*time.Second, cfg.WriteTimeout())
		require.Equal([]byte("\r\n"), cfg.Terminator())
		require.Equal(8192, cfg.ReadBufferSize())
	})

	t.Run("Default Values", func(t *testing.T) {
		cfg, err := NewLinkConfig("127.0.0.1", 2288)
		require.NoError(err)
		require.Equal(10*time.Second, cfg.ResponseTimeout())
		require.Equal(3*time.Second, cfg.ConnectTimeout())
		require.Equal(5*time.Second, cfg.WriteTimeout())
		require.Equal([]byte("\n"), cfg.Terminator())
		require.Equal(4096, cfg.ReadBufferSize())
	})

	t.Run("Invalid Host", func(t *testing.T) {
		_, err := NewLinkConfig("invalid host!", 2288)
		require.Error(err)
		require.EqualError(err, "invalid host")
	})

	t.Run("Invalid Port - Below Range", func(t *testing.T) {
		_, err := NewLinkConfig("127.0.0.1", 0)
		require.Error(err)
		require.EqualError(err, "port is out of range [1, 65535]")
	})

	t.Run("Invalid Port - Above Range", func(t *testing.T) {
		_, err := NewLinkConfig("127.0.0.1", 65536)
		require.Error(err)
		require.EqualError(err, "port is out of range [1, 65535]")
	})

	t.Run("Invalid Response Timeout", func(t *testing.T) {
		_, err := NewLinkConfig("127.0.0.1", 2288, WithResponseTimeout(time.Millisecond))
		require.Error(err)
		require.EqualError(err, "response timeout out of range [0.01, 300]")
	})

	t.Run("Invalid Connect Timeout", func(t *testing.T) {
		_, err := NewLinkConfig("127.0.0.1", 2288, WithConnectTimeout(time.Minute))
		require.Error(err)
		require.EqualError(err, "connect timeout out of range [0.1, 30]")
	})

	t.Run("Invalid Write Timeout", func(t *testing.T) {
		_, err := NewLinkConfig("127.0.0.1", 2288, WithWriteTimeout(2*time.Minute))
		require.Error(err)
		require.EqualError(err, "write timeout out of range [0.01, 60]")
	})

	t.Run("Empty Terminator", func(t *testing.T) {
		_, err := NewLinkConfig("127.0.0.1", 2288, WithTerminator(nil))
		require.Error(err)
		require.EqualError(err, "terminator is empty")
	})

	t.Run("Invalid Read Buffer Size", func(t *testing.T) {
		_, err := NewLinkConfig("127.0.0.1", 2288, WithReadBufferSize(32))
		require.Error(err)
		require.EqualError(err, "read buffer size out of range [64, 1048576]")
	})

	t.Run("Terminator Defensive Copy", func(t *testing.T) {
		term := []byte("\r\n")
		cfg, err := NewLinkConfig("127.0.0.1", 2288, WithTerminator(term))
		require.NoError(err)

		term[0] = 'X'
		require.Equal([]byte("\r\n"), cfg.Terminator())
	})

	t.Run("With Logger", func(t *testing.T) {
		l := logger.With("test", "link-config")
		cfg, err := NewLinkConfig("127.0.0.1", 2288, WithLogger(l))
		require.NoError(err)
		require.NotNil(cfg.logger)
	})

	t.Run("Nil Config", func(t *testing.T) {
		require.ErrorIs(WithResponseTimeout(time.Second).apply(nil), ErrConfigNil)
		require.ErrorIs(WithTerminator([]byte("\n")).apply(nil), ErrConfigNil)
		require.ErrorIs(WithLogger(nil).apply(nil), ErrConfigNil)
	})
}
