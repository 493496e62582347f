package sim

// Subscription identifies a registered handler so callers can detach it when
// their component shuts down. Handlers that are never unsubscribed keep their
// captures alive for the lifetime of the signal.
type Subscription uint64

type signalHandler[T any] struct {
	id Subscription
	fn func(T)
}

// Signal is an explicit observer list. Fan-out happens in subscription order
// so downstream consumers observe a stable delivery sequence. Signals are not
// goroutine safe: all subscription and emission happens on the simulation
// goroutine, matching the single-threaded tick model.
type Signal[T any] struct {
	nextID   Subscription
	handlers []signalHandler[T]
}

// Subscribe registers a handler and returns a token for later removal.
func (s *Signal[T]) Subscribe(fn func(T)) Subscription {
	if fn == nil {
		return 0
	}
	s.nextID++
	s.handlers = append(s.handlers, signalHandler[T]{id: s.nextID, fn: fn})
	return s.nextID
}

// Unsubscribe detaches a previously registered handler.
func (s *Signal[T]) Unsubscribe(id Subscription) bool {
	for i, handler := range s.handlers {
		if handler.id == id {
			s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Emit invokes every handler in subscription order.
func (s *Signal[T]) Emit(value T) {
	for _, handler := range s.handlers {
		handler.fn(value)
	}
}

// Len reports the number of attached handlers.
func (s *Signal[T]) Len() int {
	return len(s.handlers)
}
