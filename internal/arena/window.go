package arena

import "riftward/server/internal/sim"

// resultWindow retains the most recent cast results so late or lossy clients
// can replay a verdict they missed. Requests older than the window are
// answered with a nack upstream.
type resultWindow struct {
	capacity int
	order    []string
	byID     map[string]sim.CastResult
}

func newResultWindow(capacity int) *resultWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &resultWindow{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		byID:     make(map[string]sim.CastResult, capacity),
	}
}

func (w *resultWindow) Add(result sim.CastResult) {
	if result.RequestID == "" {
		return
	}
	if _, exists := w.byID[result.RequestID]; !exists {
		if len(w.order) == w.capacity {
			oldest := w.order[0]
			w.order = w.order[1:]
			delete(w.byID, oldest)
		}
		w.order = append(w.order, result.RequestID)
	}
	w.byID[result.RequestID] = result
}

func (w *resultWindow) Get(requestID string) (sim.CastResult, bool) {
	result, ok := w.byID[requestID]
	return result, ok
}

func (w *resultWindow) Len() int      { return len(w.order) }
func (w *resultWindow) Capacity() int { return w.capacity }
