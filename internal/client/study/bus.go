package study

import "sync"

// KeyHandler receives key names.
type KeyHandler func(key string)

// InputBus fans key events out to the handlers currently subscribed.
type InputBus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]KeyHandler
}

// NewInputBus returns an empty bus.
func NewInputBus() *InputBus {
	return &InputBus{handlers: make(map[int]KeyHandler)}
}

// Subscribe registers h until the returned func is called. Calling the
// returned func more than once is harmless.
func (b *InputBus) Subscribe(h KeyHandler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Dispatch delivers key to every subscriber and returns how many got it.
func (b *InputBus) Dispatch(key string) int {
	b.mu.RLock()
	hs := make([]KeyHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(key)
	}
	return len(hs)
}

// Len is the number of live subscriptions.
func (b *InputBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
