package secure

import (
	"sync"

	"github.com/go-i2p/go-peersec/lib/keys"
)

// AuthPolicy decides whether a remote identity may complete a handshake.
type AuthPolicy interface {
	Accept(remote keys.Identity) bool
}

// PolicyFunc adapts a function to AuthPolicy.
type PolicyFunc func(remote keys.Identity) bool

func (f PolicyFunc) Accept(remote keys.Identity) bool {
	return f(remote)
}

// AcceptAll accepts every authenticated identity. It is the default policy.
var AcceptAll AuthPolicy = PolicyFunc(func(keys.Identity) bool { return true })

// AllowList accepts only the identities it holds. The zero value rejects
// everyone.
type AllowList struct {
	mu  sync.RWMutex
	ids map[keys.Identity]struct{}
}

// NewAllowList returns an AllowList holding ids.
func NewAllowList(ids ...keys.Identity) *AllowList {
	a := &AllowList{}
	for _, id := range ids {
		a.Allow(id)
	}
	return a
}

// Allow adds id to the list.
func (a *AllowList) Allow(id keys.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ids == nil {
		a.ids = make(map[keys.Identity]struct{})
	}
	a.ids[id] = struct{}{}
}

// Revoke removes id from the list.
func (a *AllowList) Revoke(id keys.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.ids, id)
}

func (a *AllowList) Accept(remote keys.Identity) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[remote]
	return ok
}
