package event

import (
	"context"
	"sync"
)

// Log keeps the most recent events in memory so operators can inspect
// what the submit pipeline did without a separate store.
type Log struct {
	mu     sync.RWMutex
	size   int
	events []DomainEvent
}

// NewLog creates a log holding at most size events.
func NewLog(size int) *Log {
	if size < 1 {
		size = 100
	}
	return &Log{size: size}
}

// HandleEvent appends evt, evicting the oldest entry once full.
func (l *Log) HandleEvent(_ context.Context, evt DomainEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
	if over := len(l.events) - l.size; over > 0 {
		l.events = append([]DomainEvent(nil), l.events[over:]...)
	}
	return nil
}

// Recent returns up to limit events, newest first, optionally restricted to
// one event type.
func (l *Log) Recent(eventType string, limit int) []DomainEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []DomainEvent
	for i := len(l.events) - 1; i >= 0; i-- {
		if eventType != "" && l.events[i].EventType != eventType {
			continue
		}
		out = append(out, l.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
