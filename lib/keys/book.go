package keys

import "sync"

// Book maps identities to the signers that verify them.
type Book struct {
	mu      sync.RWMutex
	entries map[Identity]Signer
}

// NewBook returns an empty Book.
func NewBook() *Book {
	return &Book{entries: make(map[Identity]Signer)}
}

// Add records s under its own identity, replacing any previous entry.
func (b *Book) Add(s Signer) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[s.Identity()] = s
}

// AddPublicKey records a verifier for an Ed25519 public key and returns its
// identity.
func (b *Book) AddPublicKey(pub []byte) (Identity, error) {
	v, err := NewEd25519Verifier(pub)
	if err != nil {
		return "", err
	}
	b.Add(v)
	return v.Identity(), nil
}

// Lookup returns the signer recorded for id.
func (b *Book) Lookup(id Identity) (Signer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.entries[id]
	return s, ok
}

// Len returns the number of recorded identities.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
