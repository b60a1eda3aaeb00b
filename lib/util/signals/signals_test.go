package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetRegistries(t *testing.T) {
	t.Helper()
	savedReload, savedInterrupt := reloaders.handlers, interrupters.handlers
	reloaders.handlers, interrupters.handlers = nil, nil
	t.Cleanup(func() {
		reloaders.handlers, interrupters.handlers = savedReload, savedInterrupt
	})
}

func TestHandlersRunInOrder(t *testing.T) {
	resetRegistries(t)

	var order []int
	RegisterReloadHandler(func() { order = append(order, 1) })
	RegisterReloadHandler(func() { order = append(order, 2) })
	RegisterInterruptHandler(func() { order = append(order, 3) })

	handleReload()
	assert.Equal(t, []int{1, 2}, order)

	handleInterrupted()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestNilHandlerIgnored(t *testing.T) {
	resetRegistries(t)

	assert.Equal(t, HandlerID(-1), RegisterReloadHandler(nil))
	assert.Equal(t, HandlerID(-1), RegisterInterruptHandler(nil))
	assert.Zero(t, reloaders.len())
	assert.Zero(t, interrupters.len())
}

func TestDeregister(t *testing.T) {
	resetRegistries(t)

	calls := 0
	id := RegisterInterruptHandler(func() { calls++ })
	keep := RegisterInterruptHandler(func() { calls += 10 })
	assert.NotEqual(t, id, keep)

	DeregisterInterruptHandler(id)
	handleInterrupted()
	assert.Equal(t, 10, calls)

	rid := RegisterReloadHandler(func() { calls++ })
	DeregisterReloadHandler(rid)
	handleReload()
	assert.Equal(t, 10, calls)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	resetRegistries(t)

	ran := false
	RegisterInterruptHandler(func() { panic("boom") })
	RegisterInterruptHandler(func() { ran = true })

	assert.NotPanics(t, handleInterrupted)
	assert.True(t, ran)
}
