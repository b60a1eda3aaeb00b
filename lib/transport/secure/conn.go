package secure

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/flynn/noise"
	"github.com/go-i2p/go-peersec/lib/keys"
)

const (
	tagSize = 16
	// MaxPlaintextSize is the largest plaintext carried by one record.
	MaxPlaintextSize = noise.MaxMsgLen - tagSize
)

// Conn is an authenticated, encrypted net.Conn. Reads and writes may run
// concurrently with each other; concurrent reads (or writes) are serialized.
type Conn struct {
	net.Conn

	send *noise.CipherState
	recv *noise.CipherState

	local  keys.Identity
	remote peer

	readMu  sync.Mutex
	readBuf []byte

	writeMu sync.Mutex

	closed atomic.Bool
}

var _ net.Conn = (*Conn)(nil)

func newConn(raw net.Conn, send, recv *noise.CipherState, local keys.Identity, remote peer) *Conn {
	return &Conn{
		Conn:   raw,
		send:   send,
		recv:   recv,
		local:  local,
		remote: remote,
	}
}

// Ready reports whether the handshake produced usable cipher states and the
// connection has not been closed.
func (c *Conn) Ready() bool {
	return c != nil && c.Conn != nil && c.send != nil && c.recv != nil && !c.closed.Load()
}

// LocalIdentity returns the identity this side proved.
func (c *Conn) LocalIdentity() keys.Identity {
	return c.local
}

// RemoteIdentity returns the identity the peer proved.
func (c *Conn) RemoteIdentity() keys.Identity {
	return c.remote.identity
}

// RemotePublicKey returns the peer's Ed25519 identity public key.
func (c *Conn) RemotePublicKey() []byte {
	return append([]byte(nil), c.remote.publicKey...)
}

// Read decrypts the next record into p, buffering any remainder.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.readBuf) > 0 {
		n := copy(p, c.readBuf)
		c.readBuf = c.readBuf[n:]
		return n, nil
	}
	if len(p) == 0 {
		return 0, nil
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(c.Conn, lenBuf[:]); err != nil {
		return 0, err
	}
	size := binary.BigEndian.Uint16(lenBuf[:])
	if size < tagSize {
		return 0, fmt.Errorf("%w: %d byte record", ErrInvalidRecord, size)
	}
	record := make([]byte, size)
	if _, err := io.ReadFull(c.Conn, record); err != nil {
		return 0, unexpectedEOF(err)
	}
	plaintext, err := c.recv.Decrypt(record[:0], nil, record)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	n := copy(p, plaintext)
	if n < len(plaintext) {
		c.readBuf = append([]byte(nil), plaintext[n:]...)
	}
	return n, nil
}

// Write encrypts p into one or more records.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for len(p) > 0 {
		chunk := p[:min(len(p), MaxPlaintextSize)]
		out := make([]byte, 2, 2+len(chunk)+tagSize)
		out, err := c.send.Encrypt(out, nil, chunk)
		if err != nil {
			return written, err
		}
		binary.BigEndian.PutUint16(out, uint16(len(out)-2))
		if _, err := c.Conn.Write(out); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
