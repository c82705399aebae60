package events

import (
	"context"
	"sync"
)

// hub is the in-process fan-out used when Redis is not configured or not
// reachable. Every subscriber sees every event.
type hub struct {
	mu          sync.RWMutex
	subscribers map[*memorySubscription]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[*memorySubscription]struct{})}
}

type memorySubscription struct {
	ch      chan Event
	closeCh chan struct{}
	once    sync.Once
	hub     *hub
}

func (h *hub) subscribe(ctx context.Context, buffer int) *memorySubscription {
	sub := &memorySubscription{
		ch:      make(chan Event, buffer),
		closeCh: make(chan struct{}),
		hub:     h,
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closeCh:
		}
	}()

	return sub
}

func (h *hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		// Slow subscribers drop events rather than block publishers.
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// close ends every subscription.
func (h *hub) close() {
	h.mu.RLock()
	subs := make([]*memorySubscription, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (h *hub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (s *memorySubscription) Events() <-chan Event {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subscribers, s)
		close(s.ch)
		s.hub.mu.Unlock()
		close(s.closeCh)
	})
	return nil
}
