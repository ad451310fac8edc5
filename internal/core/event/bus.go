// Package event is a small typed, double-buffered notice bus.
//
// Producers Emit values of any type into the back buffer; Flush swaps buffers
// and hands every pending value to the handlers subscribed for its exact type,
// in emission order. Not safe for concurrent Emit; subscription is locked.
package event

import (
	"reflect"
	"sync"
)

type record struct {
	t  reflect.Type
	ev any
}

type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []record
	back     []record
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer. It is delivered on the next Flush.
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, record{t: typeKey[T](), ev: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeKey[T]()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SubscribeAll registers a handler that sees every event regardless of type.
func (b *Bus) SubscribeAll(fn func(any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[nil] = append(b.handlers[nil], fn)
}

// Pending returns the number of events waiting for the next Flush.
func (b *Bus) Pending() int { return len(b.back) }

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	all := b.handlers[nil]
	b.mu.Unlock()
	for _, r := range b.front {
		b.mu.Lock()
		handlers := b.handlers[r.t]
		b.mu.Unlock()
		for _, h := range handlers {
			callHandler(h, r.ev)
		}
		for _, h := range all {
			h.(func(any))(r.ev)
		}
	}
}

// Flush swaps, dispatches and returns the delivered events in emission order.
// The returned slice is owned by the caller.
func (b *Bus) Flush() []any {
	b.SwapBuffers()
	b.DispatchAll()
	if len(b.front) == 0 {
		return nil
	}
	out := make([]any, len(b.front))
	for i, r := range b.front {
		out[i] = r.ev
	}
	return out
}

func callHandler(handler any, event any) {
	// Subscribe and Emit share the type key, so the call is well-typed.
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
