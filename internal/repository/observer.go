package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// EventKind describes what changed in the repository.
type EventKind string

const (
	EventInitialized EventKind = "initialized"
	EventAdded       EventKind = "added"
	EventUpdated     EventKind = "updated"
	EventDeleted     EventKind = "deleted"
)

// Event is delivered to listeners after a change has been persisted.
type Event struct {
	Kind EventKind
	// ID of the affected POI. Empty for EventInitialized.
	ID string
	// Count is the collection size after the change.
	Count int
}

// Listener reacts to repository changes. A returned error or a panic is
// logged and never reaches the caller of the mutating operation.
type Listener func(ctx context.Context, ev Event) error

type subscription struct {
	id int
	fn Listener
}

// observers is an ordered listener list with isolated invocation.
type observers struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
	logger *slog.Logger
}

func (o *observers) add(fn Listener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *observers) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s.id == id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

// notify invokes every listener in registration order.
func (o *observers) notify(ctx context.Context, ev Event) {
	o.mu.Lock()
	subs := make([]subscription, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		if err := o.invoke(ctx, s.fn, ev); err != nil {
			o.logger.Warn("Change listener failed",
				"listener", s.id,
				"event", ev.Kind,
				"poi_id", ev.ID,
				"error", err,
			)
		}
	}
}

func (o *observers) invoke(ctx context.Context, fn Listener, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return fn(ctx, ev)
}
