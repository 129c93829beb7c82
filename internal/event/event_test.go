package event_test

import (
	"sync"
	"testing"
	"time"

	"github.com/clipdeck/clipdeck/internal/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_Dispatch_InlineHandlerRunsSynchronously(t *testing.T) {
	t.Parallel()
	bus := event.New()

	received := make([]event.Payload, 0)
	bus.RegisterHandlerFunction(event.MEDIA_INGESTED, func(ev event.Event, payload event.Payload) {
		assert.Equal(t, event.MEDIA_INGESTED, ev)
		received = append(received, payload)
	})

	id := uuid.New()
	bus.Dispatch(event.MEDIA_INGESTED, id)

	assert.Equal(t, []event.Payload{id}, received)
}

func Test_Dispatch_ReachesAllRegisteredHandlers(t *testing.T) {
	t.Parallel()
	bus := event.New()

	calls := 0
	for i := 0; i < 3; i++ {
		bus.RegisterHandlerFunction(event.MEDIA_REMOVED, func(event.Event, event.Payload) {
			calls++
		})
	}

	bus.Dispatch(event.MEDIA_REMOVED, uuid.New())
	assert.Equal(t, 3, calls)
}

func Test_Dispatch_IgnoresUnrelatedEvents(t *testing.T) {
	t.Parallel()
	bus := event.New()

	called := false
	bus.RegisterHandlerFunction(event.MEDIA_REMOVED, func(event.Event, event.Payload) {
		called = true
	})

	bus.Dispatch(event.MEDIA_INGESTED, uuid.New())
	assert.False(t, called)
}

func Test_Dispatch_AsyncHandlerRunsOffTheDispatchPath(t *testing.T) {
	t.Parallel()
	bus := event.New()

	var mu sync.Mutex
	received := make([]event.Payload, 0)
	bus.RegisterAsyncHandlerFunction(event.MEDIA_INGESTED, func(_ event.Event, payload event.Payload) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
	})

	id := uuid.New()
	bus.Dispatch(event.MEDIA_INGESTED, id)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0] == id
	}, time.Second*2, time.Millisecond*10)
}
