package tcp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/go-i2p/go-peersec/lib/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerLifecycle(t *testing.T) {
	l := NewListener("127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", l.Addr().String())
	assert.Equal(t, "tcp", l.Addr().Network())

	_, err := l.Accept()
	assert.ErrorIs(t, err, transport.ErrNotStarted)

	require.NoError(t, l.Start())
	assert.ErrorIs(t, l.Start(), transport.ErrAlreadyStarted)
	assert.NotEqual(t, "127.0.0.1:0", l.Addr().String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := Dial(context.Background(), l.Addr().String())
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		_, err = conn.Write([]byte("ping"))
		assert.NoError(t, err)
	}()

	conn, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
	<-done

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Start(), transport.ErrListenerClosed)
}

func TestCloseUnblocksAccept(t *testing.T) {
	l := NewListener("127.0.0.1:0")
	require.NoError(t, l.Start())

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Accept()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, transport.ErrListenerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Accept did not return after Close")
	}
}

func TestCloseBeforeStart(t *testing.T) {
	l := NewListener("127.0.0.1:0")
	require.NoError(t, l.Close())
	_, err := l.Accept()
	assert.ErrorIs(t, err, transport.ErrListenerClosed)
}

func TestStartInvalidAddress(t *testing.T) {
	l := NewListener("not an address")
	assert.Error(t, l.Start())
}

func TestHandshakeDeadline(t *testing.T) {
	l := NewListener("127.0.0.1:0", WithHandshakeDeadline(50*time.Millisecond))
	require.NoError(t, l.Start())
	defer l.Close()

	client, err := Dial(context.Background(), l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	conn, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	// Nothing is written, so the read hits the deadline.
	_, err = conn.Read(make([]byte, 1))
	require.Error(t, err)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}
