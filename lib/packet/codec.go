package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

var (
	ErrStringTooLong = errors.New("string exceeds 65535 bytes")
	ErrInvalidUTF8   = errors.New("string is not valid utf-8")
	ErrFramingDrift  = errors.New("body read did not consume exactly what was written")
)

// WriteString writes s as a little-endian uint16 byte length followed by the
// UTF-8 bytes.
func WriteString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return ErrStringTooLong
	}
	var prefix [2]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(s)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a string written by WriteString.
func ReadString(r io.Reader) (string, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return "", err
	}
	buf := make([]byte, binary.LittleEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}

// CheckFraming writes p's body, reads it back into fresh and reports
// ErrFramingDrift if fresh consumed more or fewer bytes than were written.
// fresh must be an empty instance of the same variant.
func CheckFraming(p, fresh Packet) error {
	var buf bytes.Buffer
	if err := p.WriteBody(&buf); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	written := buf.Len()
	// Trailing guard bytes catch over-reads that would otherwise hit EOF.
	guard := []byte{0xA5, 0x5A, 0xA5, 0x5A}
	buf.Write(guard)
	r := bytes.NewReader(buf.Bytes())
	if err := fresh.ReadBody(r); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	consumed := int(r.Size()) - r.Len()
	if consumed != written {
		return fmt.Errorf("%w: wrote %d bytes, read %d", ErrFramingDrift, written, consumed)
	}
	return nil
}
