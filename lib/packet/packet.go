package packet

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// These use errors.New (not oops.Errorf) so callers can match them with errors.Is().
var (
	ErrUnknownType   = errors.New("unknown packet type")
	ErrDuplicateType = errors.New("packet type already registered")
	ErrNilPacket     = errors.New("packet constructor returned nil")
)

// Packet is a wire entity with a stable type identifier.
type Packet interface {
	// Type returns the stable one-byte type identifier of the variant.
	Type() byte
	// WriteBody writes the variant's body encoding.
	WriteBody(w io.Writer) error
	// ReadBody reads exactly the bytes WriteBody produced.
	ReadBody(r io.Reader) error
}

// Factory creates empty packet instances from type identifiers.
type Factory interface {
	Create(typeID byte) (Packet, error)
}

// Registry is a concurrency-safe Factory backed by registered constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[byte]func() Packet
}

var _ Factory = (*Registry)(nil)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[byte]func() Packet)}
}

// Register associates typeID with ctor. Each identifier can be registered
// once.
func (r *Registry) Register(typeID byte, ctor func() Packet) error {
	if ctor == nil {
		return fmt.Errorf("register type %#02x: %w", typeID, ErrNilPacket)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[typeID]; exists {
		return fmt.Errorf("register type %#02x: %w", typeID, ErrDuplicateType)
	}
	r.ctors[typeID] = ctor
	return nil
}

// Create returns an empty instance of the variant registered for typeID.
func (r *Registry) Create(typeID byte) (Packet, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[typeID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("create type %#02x: %w", typeID, ErrUnknownType)
	}
	p := ctor()
	if p == nil {
		return nil, fmt.Errorf("create type %#02x: %w", typeID, ErrNilPacket)
	}
	return p, nil
}

// Types returns the registered type identifiers in ascending order.
func (r *Registry) Types() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]byte, 0, len(r.ctors))
	for id := 0; id < 256; id++ {
		if _, ok := r.ctors[byte(id)]; ok {
			types = append(types, byte(id))
		}
	}
	return types
}
