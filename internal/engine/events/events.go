// Package events keeps a bounded journal of boot lifecycle events.
// The journal is a logrus hook: every log entry carrying an "event" field is
// captured, so the engine's structured logs double as a queryable history.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventField is the log field that marks an entry as a lifecycle event.
const EventField = "event"

// DefaultSize is the journal capacity used when none is given.
const DefaultSize = 1000

// Event is one captured lifecycle event.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Level     string            `json:"level"`
	Timestamp time.Time         `json:"timestamp"`
	BootID    string            `json:"boot_id,omitempty"`
	Service   string            `json:"service,omitempty"`
	Component string            `json:"component,omitempty"`
	Message   string            `json:"message"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// EventHandler processes events as they are captured.
type EventHandler func(Event)

// Journal is a thread-safe circular buffer of events.
type Journal struct {
	mu       sync.RWMutex
	events   []Event
	size     int
	head     int
	count    int
	handlers []handlerEntry
	nextID   int64
}

type handlerEntry struct {
	id      int64
	handler EventHandler
}

// NewJournal creates a journal holding at most size events.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultSize
	}
	return &Journal{
		events: make([]Event, size),
		size:   size,
	}
}

// Levels implements logrus.Hook.
func (j *Journal) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook. Entries without an event field are ignored.
func (j *Journal) Fire(entry *logrus.Entry) error {
	eventType, ok := entry.Data[EventField]
	if !ok {
		return nil
	}

	ev := Event{
		Type:      fmt.Sprint(eventType),
		Level:     entry.Level.String(),
		Timestamp: entry.Time.UTC(),
		Message:   entry.Message,
	}
	for key, value := range entry.Data {
		switch key {
		case EventField:
		case "boot_id":
			ev.BootID = fmt.Sprint(value)
		case "service":
			ev.Service = fmt.Sprint(value)
		case "component":
			ev.Component = fmt.Sprint(value)
		case logrus.ErrorKey:
			ev.Error = fmt.Sprint(value)
		default:
			if ev.Fields == nil {
				ev.Fields = make(map[string]string)
			}
			ev.Fields[key] = fmt.Sprint(value)
		}
	}

	j.Log(ev)
	return nil
}

// Log adds an event to the journal and notifies handlers.
func (j *Journal) Log(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	j.mu.Lock()
	j.events[j.head] = ev
	j.head = (j.head + 1) % j.size
	if j.count < j.size {
		j.count++
	}
	handlers := make([]handlerEntry, len(j.handlers))
	copy(handlers, j.handlers)
	j.mu.Unlock()

	// handlers run outside the lock
	for _, h := range handlers {
		h.handler(ev)
	}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (j *Journal) Subscribe(handler EventHandler) func() {
	j.mu.Lock()
	id := j.nextID
	j.nextID++
	j.handlers = append(j.handlers, handlerEntry{id: id, handler: handler})
	j.mu.Unlock()

	return func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		for i, h := range j.handlers {
			if h.id == id {
				j.handlers = append(j.handlers[:i], j.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns the most recent n events, newest first.
func (j *Journal) Recent(n int) []Event {
	return j.recent(n, nil)
}

// RecentByService returns the most recent n events for one service.
func (j *Journal) RecentByService(service string, n int) []Event {
	return j.recent(n, func(ev Event) bool { return ev.Service == service })
}

// RecentByType returns the most recent n events of one type.
func (j *Journal) RecentByType(eventType string, n int) []Event {
	return j.recent(n, func(ev Event) bool { return ev.Type == eventType })
}

func (j *Journal) recent(n int, match func(Event) bool) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n <= 0 || j.count == 0 {
		return nil
	}

	var result []Event
	for i := 0; i < j.count && len(result) < n; i++ {
		ev := j.events[(j.head-1-i+j.size)%j.size]
		if match == nil || match(ev) {
			result = append(result, ev)
		}
	}
	return result
}

// Count returns the number of events held.
func (j *Journal) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.count
}

// Clear removes all events.
func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = make([]Event, j.size)
	j.head = 0
	j.count = 0
}
