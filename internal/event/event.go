// Package event carries notifications between silo'd parts of the
// backend, typically from the ingestion pipeline out to the REST
// gateway's activity socket.
package event

import (
	"sync"

	"github.com/clipdeck/clipdeck/pkg/logger"
)

var log = logger.Get("Event")

type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}

	eventHandler struct {
		mu       sync.Mutex
		handlers map[Event][]handlerMethod
	}
)

const (
	// MEDIA_INGESTED is dispatched with the new media file's ID once an
	// ingestion record has been persisted.
	MEDIA_INGESTED Event = "media:ingested"

	// MEDIA_REMOVED is dispatched with the removed media file's ID after
	// a record and it's assets have been deleted.
	MEDIA_REMOVED Event = "media:removed"
)

func New() EventCoordinator {
	return &eventHandler{handlers: make(map[Event][]handlerMethod)}
}

// RegisterHandlerFunction attaches a handler which is executed inline
// with the dispatching code.
func (handler *eventHandler) RegisterHandlerFunction(event Event, method HandlerMethod) {
	handler.register(event, handlerMethod{handle: method})
}

// RegisterAsyncHandlerFunction attaches a handler which is executed in
// it's own goroutine on dispatch, keeping slow consumers off the
// dispatcher's critical path.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, method HandlerMethod) {
	handler.register(event, handlerMethod{handle: method, async: true})
}

func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	handler.mu.Lock()
	registered := make([]handlerMethod, len(handler.handlers[event]))
	copy(registered, handler.handlers[event])
	handler.mu.Unlock()

	log.Emit(logger.VERBOSE, "Dispatching event %s to %d handler(s)\n", event, len(registered))
	for _, method := range registered {
		if method.async {
			go method.handle(event, payload)
		} else {
			method.handle(event, payload)
		}
	}
}

func (handler *eventHandler) register(event Event, method handlerMethod) {
	handler.mu.Lock()
	defer handler.mu.Unlock()

	handler.handlers[event] = append(handler.handlers[event], method)
}
