// Package signals dispatches process signals to registered handlers: SIGHUP
// to reload handlers and SIGINT/SIGTERM to interrupt handlers.
package signals

import (
	"os"
	"os/signal"
	"sync"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// sigChan is buffered to avoid missing signals delivered while no receiver is ready.
var sigChan = make(chan os.Signal, 1)

// Handler is a function called when a signal is received.
type Handler func()

// HandlerID identifies a registered handler for deregistration.
type HandlerID int

type registeredHandler struct {
	id HandlerID
	fn Handler
}

// registry is an ordered set of handlers.
type registry struct {
	name     string
	handlers []registeredHandler
}

var (
	mu           sync.Mutex
	nextID       HandlerID
	reloaders    = &registry{name: "reload"}
	interrupters = &registry{name: "interrupt"}
	stopOnce     sync.Once
)

func (r *registry) add(f Handler) HandlerID {
	if f == nil {
		return -1
	}
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	r.handlers = append(r.handlers, registeredHandler{id: id, fn: f})
	return id
}

func (r *registry) remove(id HandlerID) {
	mu.Lock()
	defer mu.Unlock()
	for i, h := range r.handlers {
		if h.id == id {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return
		}
	}
}

func (r *registry) len() int {
	mu.Lock()
	defer mu.Unlock()
	return len(r.handlers)
}

// run calls a snapshot of the handlers in registration order. A panicking
// handler does not stop the rest.
func (r *registry) run() {
	mu.Lock()
	snapshot := make([]registeredHandler, len(r.handlers))
	copy(snapshot, r.handlers)
	mu.Unlock()

	for _, h := range snapshot {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.WithFields(logger.Fields{
						"at":      "signals.run",
						"handler": r.name,
						"panic":   p,
					}).Error("signal handler panicked")
				}
			}()
			h.fn()
		}()
	}
}

// RegisterReloadHandler registers a handler called on SIGHUP.
// Nil handlers are ignored and return -1.
func RegisterReloadHandler(f Handler) HandlerID {
	return reloaders.add(f)
}

// DeregisterReloadHandler removes a reload handler.
func DeregisterReloadHandler(id HandlerID) {
	reloaders.remove(id)
}

// RegisterInterruptHandler registers a handler called on SIGINT or SIGTERM.
// Nil handlers are ignored and return -1.
func RegisterInterruptHandler(f Handler) HandlerID {
	return interrupters.add(f)
}

// DeregisterInterruptHandler removes an interrupt handler.
func DeregisterInterruptHandler(id HandlerID) {
	interrupters.remove(id)
}

func handleReload() {
	reloaders.run()
}

func handleInterrupted() {
	interrupters.run()
}

// StopHandle stops signal delivery and makes Handle return. Only the first
// call has an effect.
func StopHandle() {
	stopOnce.Do(func() {
		signal.Stop(sigChan)
		close(sigChan)
	})
}
