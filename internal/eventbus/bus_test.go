package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matthewbaird/parentref/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DispatchesInOrderToAllSubscribers(t *testing.T) {
	bus := New(8)
	var mu sync.Mutex
	var got []string
	record := func(name string) HandlerFunc {
		return func(_ context.Context, evt event.DomainEvent) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+evt.EventType)
			return nil
		}
	}
	bus.Subscribe("a", record("a"))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Subscribe("b", record("b"))
	bus.Start(context.Background())

	ctx := context.Background()
	bus.Publish(ctx, event.DomainEvent{EventType: "one"})
	bus.Publish(ctx, event.DomainEvent{EventType: "two"})
	bus.Stop()

	assert.Equal(t, []string{"a:one", "b:one", "a:two", "b:two"}, got)

	// Publishing after Stop drops instead of panicking.
	bus.Publish(ctx, event.DomainEvent{EventType: "late"})
	bus.Stop()
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	log := event.NewLog(10)
	bus.Subscribe("log", log)

	ctx := context.Background()
	bus.Publish(ctx, event.DomainEvent{EventType: "kept"})
	bus.Publish(ctx, event.DomainEvent{EventType: "dropped"})
	bus.Start(ctx)
	bus.Stop()

	recent := log.Recent("", 0)
	require.Len(t, recent, 1)
	assert.Equal(t, "kept", recent[0].EventType)
}

func TestBus_DrainsOnCancel(t *testing.T) {
	bus := New(4)
	log := event.NewLog(10)
	bus.Subscribe("log", log)

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, event.DomainEvent{EventType: "x"})
	bus.Publish(ctx, event.DomainEvent{EventType: "y"})
	cancel()
	bus.Start(ctx)
	bus.Stop()

	assert.Len(t, log.Recent("", 0), 2)
}
