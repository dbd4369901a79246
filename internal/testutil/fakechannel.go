package testutil

import (
	"encoding/json"
	"sync"
)

// FakeChannel is an in-process push channel. Events are delivered
// synchronously on the caller's goroutine.
type FakeChannel struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[int]func(json.RawMessage)
}

// NewFakeChannel creates a channel with no subscribers.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{handlers: make(map[string]map[int]func(json.RawMessage))}
}

// On registers fn for an event and returns a function removing it.
func (c *FakeChannel) On(event string, fn func(payload json.RawMessage)) (off func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := c.next
	c.next++
	c.handlers[event][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

// Handlers returns the number of live subscriptions for an event.
func (c *FakeChannel) Handlers(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

// Emit encodes v as JSON and delivers it to every handler of event.
func (c *FakeChannel) Emit(event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.EmitRaw(event, b)
	return nil
}

// EmitRaw delivers a raw payload to every handler of event.
func (c *FakeChannel) EmitRaw(event string, payload []byte) {
	c.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(c.handlers[event]))
	for _, fn := range c.handlers[event] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(payload)
	}
}
