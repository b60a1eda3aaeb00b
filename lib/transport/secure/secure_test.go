package secure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-i2p/go-peersec/lib/keys"
	"github.com/go-i2p/go-peersec/lib/transport"
	"github.com/go-i2p/go-peersec/lib/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeListener hands out the server ends of net.Pipe pairs.
type pipeListener struct {
	conns      chan net.Conn
	done       chan struct{}
	closeOnce  sync.Once
	closeCount atomic.Int32
	started    atomic.Bool
}

func newPipeListener() *pipeListener {
	return &pipeListener{
		conns: make(chan net.Conn, 8),
		done:  make(chan struct{}),
	}
}

func (l *pipeListener) Addr() net.Addr {
	return transport.Addr{Net: "pipe", Address: "pipe:7656"}
}

func (l *pipeListener) Start() error {
	l.started.Store(true)
	return nil
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, transport.ErrListenerClosed
	}
}

func (l *pipeListener) Close() error {
	l.closeCount.Add(1)
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

// dial queues a server end and returns the client end.
func (l *pipeListener) dial() net.Conn {
	server, client := net.Pipe()
	l.conns <- server
	return client
}

// trackedConn records Close calls.
type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

func newTestCredential(t *testing.T) (*Credential, *keys.Ed25519Signer) {
	t.Helper()
	signer, err := keys.GenerateEd25519Signer()
	require.NoError(t, err)
	cred, err := NewCredential(signer)
	require.NoError(t, err)
	return cred, signer
}

type clientResult struct {
	conn *Conn
	err  error
}

func runClient(raw net.Conn, cred *Credential, policy AuthPolicy) <-chan clientResult {
	ch := make(chan clientResult, 1)
	go func() {
		conn, err := Client(raw, cred, policy)
		ch <- clientResult{conn: conn, err: err}
	}()
	return ch
}

func TestHandshakeRoundTrip(t *testing.T) {
	serverCred, serverSigner := newTestCredential(t)
	clientCred, clientSigner := newTestCredential(t)

	inner := newPipeListener()
	l := NewListener(inner, serverCred)
	require.NoError(t, l.Start())
	assert.True(t, inner.started.Load())

	result := runClient(inner.dial(), clientCred, AcceptAll)

	server, err := l.AcceptSecure()
	require.NoError(t, err)
	defer server.Close()
	res := <-result
	require.NoError(t, res.err)
	client := res.conn
	defer client.Close()

	assert.True(t, server.Ready())
	assert.True(t, client.Ready())
	assert.Equal(t, clientSigner.Identity(), server.RemoteIdentity())
	assert.Equal(t, serverSigner.Identity(), client.RemoteIdentity())
	assert.Equal(t, serverSigner.Identity(), server.LocalIdentity())
	assert.Equal(t, clientSigner.PublicKey(), server.RemotePublicKey())

	go func() {
		_, err := client.Write([]byte("hello over noise"))
		assert.NoError(t, err)
	}()
	buf := make([]byte, len("hello over noise"))
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello over noise", string(buf))
}

func TestConnSplitsLargeWrites(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	clientCred, _ := newTestCredential(t)
	inner := newPipeListener()
	l := NewListener(inner, serverCred)

	result := runClient(inner.dial(), clientCred, nil)
	server, err := l.AcceptSecure()
	require.NoError(t, err)
	res := <-result
	require.NoError(t, res.err)

	payload := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, MaxPlaintextSize)
	go func() {
		n, err := server.Write(payload)
		assert.NoError(t, err)
		assert.Equal(t, len(payload), n)
	}()

	got := make([]byte, len(payload))
	_, err = io.ReadFull(res.conn, got)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestConnClosedIsNotReady(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	clientCred, _ := newTestCredential(t)
	inner := newPipeListener()
	l := NewListener(inner, serverCred)

	result := runClient(inner.dial(), clientCred, nil)
	server, err := l.AcceptSecure()
	require.NoError(t, err)
	res := <-result
	require.NoError(t, res.err)

	require.NoError(t, res.conn.Close())
	assert.False(t, res.conn.Ready())

	_, err = server.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestServerPolicyRejectsClient(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	clientCred, _ := newTestCredential(t)
	other, err := keys.GenerateEd25519Signer()
	require.NoError(t, err)

	inner := newPipeListener()
	l := NewListener(inner, serverCred, WithPolicy(NewAllowList(other.Identity())))

	result := runClient(inner.dial(), clientCred, AcceptAll)

	_, err = l.AcceptSecure()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandshakeFailure)
	assert.ErrorIs(t, err, ErrPeerRejected)

	// The initiator finishes before the responder decides; the rejection is
	// only visible as a dropped connection.
	res := <-result
	if res.err == nil {
		_, err = res.conn.Read(make([]byte, 1))
		assert.Error(t, err)
	}
}

func TestClientPolicyRejectsServer(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	clientCred, _ := newTestCredential(t)

	inner := newPipeListener()
	l := NewListener(inner, serverCred)

	reject := PolicyFunc(func(keys.Identity) bool { return false })
	result := runClient(inner.dial(), clientCred, reject)

	_, err := l.AcceptSecure()
	assert.ErrorIs(t, err, ErrHandshakeFailure)

	res := <-result
	assert.ErrorIs(t, res.err, ErrPeerRejected)
	assert.ErrorIs(t, res.err, ErrHandshakeFailure)
}

func TestAllowList(t *testing.T) {
	var zero AllowList
	assert.False(t, zero.Accept("alice"))

	a := NewAllowList("alice")
	assert.True(t, a.Accept("alice"))
	assert.False(t, a.Accept("bob"))
	a.Allow("bob")
	assert.True(t, a.Accept("bob"))
	a.Revoke("alice")
	assert.False(t, a.Accept("alice"))
	assert.True(t, AcceptAll.Accept("anyone"))
}

func TestFailingHandshakeLeavesListenerUsable(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	inner := newPipeListener()

	var calls atomic.Int32
	failing := func(raw net.Conn, cred *Credential, policy AuthPolicy) (*Conn, error) {
		calls.Add(1)
		return nil, errors.New("simulated handshake failure")
	}
	l := NewListener(inner, serverCred, WithHandshaker(failing))

	for i := 0; i < 3; i++ {
		server, client := net.Pipe()
		defer client.Close()
		raw := &trackedConn{Conn: server}
		inner.conns <- raw

		conn, err := l.Accept()
		assert.Nil(t, conn)
		require.ErrorIs(t, err, ErrHandshakeFailure, "attempt %d", i)
		var he *HandshakeError
		require.ErrorAs(t, err, &he)
		assert.False(t, he.Timeout())
		assert.True(t, raw.closed.Load(), "raw connection %d left open", i)
	}
	assert.Equal(t, int32(3), calls.Load())

	// The listener still delegates after repeated failures.
	require.NoError(t, l.Close())
	_, err := l.Accept()
	assert.ErrorIs(t, err, transport.ErrListenerClosed)
	assert.NotErrorIs(t, err, ErrHandshakeFailure)
}

func TestHandshakeRecoversAfterFailure(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	clientCred, _ := newTestCredential(t)
	inner := newPipeListener()

	var first atomic.Bool
	first.Store(true)
	flaky := func(raw net.Conn, cred *Credential, policy AuthPolicy) (*Conn, error) {
		if first.CompareAndSwap(true, false) {
			return nil, errors.New("first attempt fails")
		}
		return ServerHandshake(raw, cred, policy)
	}
	l := NewListener(inner, serverCred, WithHandshaker(flaky))

	broken := runClient(inner.dial(), clientCred, nil)
	_, err := l.Accept()
	assert.ErrorIs(t, err, ErrHandshakeFailure)
	assert.Error(t, (<-broken).err)

	result := runClient(inner.dial(), clientCred, nil)
	conn, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, (<-result).err)
	assert.IsType(t, &Conn{}, conn)
}

func TestNotReadyConnectionIsRejected(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	inner := newPipeListener()
	l := NewListener(inner, serverCred, WithHandshaker(func(raw net.Conn, _ *Credential, _ AuthPolicy) (*Conn, error) {
		return &Conn{Conn: raw}, nil
	}))

	server, client := net.Pipe()
	defer client.Close()
	raw := &trackedConn{Conn: server}
	inner.conns <- raw

	_, err := l.AcceptSecure()
	assert.ErrorIs(t, err, ErrHandshakeFailure)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.True(t, raw.closed.Load())
}

func TestHandshakeTimeoutIsReported(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	inner := newPipeListener()
	l := NewListener(inner, serverCred)

	server, client := net.Pipe()
	defer client.Close()
	require.NoError(t, server.SetDeadline(time.Now().Add(20*time.Millisecond)))
	inner.conns <- server

	_, err := l.AcceptSecure()
	require.ErrorIs(t, err, ErrHandshakeFailure)
	var he *HandshakeError
	require.ErrorAs(t, err, &he)
	assert.True(t, he.Timeout())
}

func TestHandshakeRejectsGarbage(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	inner := newPipeListener()
	l := NewListener(inner, serverCred)

	client := inner.dial()
	go func() {
		_ = writeFrame(client, []byte("not a noise message"))
		client.Close()
	}()

	_, err := l.AcceptSecure()
	assert.ErrorIs(t, err, ErrHandshakeFailure)
}

func TestAuthenticateRejectsUnboundStaticKey(t *testing.T) {
	cred, _ := newTestCredential(t)
	other, _ := newTestCredential(t)

	// cred's payload signs cred's static key, not other's.
	_, err := authenticate(cred.payload, other.StaticPublicKey(), AcceptAll)
	assert.ErrorIs(t, err, ErrIdentityProof)

	_, err = authenticate(cred.payload[:10], cred.StaticPublicKey(), AcceptAll)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	p, err := authenticate(cred.payload, cred.StaticPublicKey(), AcceptAll)
	require.NoError(t, err)
	assert.Equal(t, cred.Identity(), p.identity)
}

func TestListenerDecoration(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	inner := newPipeListener()
	l := NewListener(inner, serverCred)

	assert.Equal(t, inner.Addr(), l.Addr())

	require.NoError(t, l.Close())
	assert.Equal(t, int32(1), inner.closeCount.Load())
}

func TestCloseUnblocksAccept(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	inner := newPipeListener()
	l := NewListener(inner, serverCred)

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

func TestDialOverTCP(t *testing.T) {
	serverCred, serverSigner := newTestCredential(t)
	clientCred, clientSigner := newTestCredential(t)

	l := NewListener(tcp.NewListener("127.0.0.1:0"), serverCred)
	require.NoError(t, l.Start())
	defer l.Close()

	accepted := make(chan *Conn, 1)
	go func() {
		conn, err := l.AcceptSecure()
		assert.NoError(t, err)
		accepted <- conn
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, l.Addr().String(), clientCred, NewAllowList(serverSigner.Identity()))
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()
	assert.Equal(t, clientSigner.Identity(), server.RemoteIdentity())

	_, err = conn.Write([]byte("tcp"))
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "tcp", string(buf))
}

func TestCloseInterruptsStalledHandshake(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	l := NewListener(tcp.NewListener("127.0.0.1:0"), serverCred)
	require.NoError(t, l.Start())

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Accept()
		errCh <- err
	}()

	// Connects and never sends the first handshake message.
	silent, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer silent.Close()

	require.Eventually(t, func() bool { return l.InFlight() == 1 },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, l.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, transport.ErrListenerClosed)
		assert.NotErrorIs(t, err, ErrHandshakeFailure)
	case <-time.After(2 * time.Second):
		t.Fatal("Accept still blocked after Close")
	}
	assert.Zero(t, l.InFlight())
}

func TestHandshakeAfterCloseIsRefused(t *testing.T) {
	serverCred, _ := newTestCredential(t)
	l := NewListener(newPipeListener(), serverCred)
	require.NoError(t, l.Close())

	server, client := net.Pipe()
	defer client.Close()
	raw := &trackedConn{Conn: server}

	_, err := l.Handshake(raw)
	assert.ErrorIs(t, err, transport.ErrListenerClosed)
	assert.True(t, raw.closed.Load())
}
