package engine

import (
	"github.com/nerrad567/crestron-sim/internal/device"
)

// Subscribe registers fn to be called after every state change of a known
// device. Listeners run synchronously on the dispatching goroutine and must
// not block.
//
// Returns a function that removes the listener. It is safe to call more
// than once.
func (e *Engine) Subscribe(fn func(device.Change)) (unsubscribe func()) {
	e.listenerMu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.listenerMu.Unlock()

	return func() {
		e.listenerMu.Lock()
		delete(e.listeners, id)
		e.listenerMu.Unlock()
	}
}

func (e *Engine) notify(c device.Change) {
	c.At = e.now().UTC()

	e.listenerMu.RLock()
	fns := make([]func(device.Change), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.listenerMu.RUnlock()

	for _, fn := range fns {
		e.call(fn, c)
	}
}

// call invokes a listener, recovering from panics so one bad listener
// cannot take down the transport loop.
func (e *Engine) call(fn func(device.Change), c device.Change) {
	defer func() {
		if r := recover(); r != nil {
			e.diag.Warn("change listener panicked",
				"kind", string(c.Kind),
				"id", c.ID,
				"panic", r,
			)
		}
	}()
	fn(c)
}
