// Package event is a small synchronous event bus used to publish the progress of an
// ingestion run to anything interested in it (the CLI progress output, tests).
package event

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dailypy/mediaflow/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("Events")

type (
	Event         string
	Payload       any
	HandlerMethod func(Event, Payload)

	HandlerChannel chan HandlerEvent
	HandlerEvent   struct {
		Event   Event
		Payload Payload
	}

	EventDispatcher interface {
		Dispatch(Event, Payload)
	}

	EventHandler interface {
		RegisterAsyncHandlerFunction(Event, HandlerMethod)
		RegisterHandlerFunction(Event, HandlerMethod)
		RegisterHandlerChannel(HandlerChannel, ...Event)
	}

	EventCoordinator interface {
		EventDispatcher
		EventHandler
	}

	// ItemProgress is the payload of the ITEM_* events. Index is zero-based and
	// refers to the scan order of the item within its run.
	ItemProgress struct {
		RunID uuid.UUID
		Index int
		Total int
		Stem  string

		// Only populated for ITEM_COMPLETE.
		Succeeded bool
		Stage     string
		Err       error
	}

	eventHandler struct {
		fnHandlers   map[Event][]handlerMethod
		chanHandlers map[Event][]HandlerChannel
	}

	handlerMethod struct {
		handle HandlerMethod
		async  bool
	}
)

const (
	ITEM_STARTED  Event = "ingest:item:started"
	ITEM_COMPLETE Event = "ingest:item:complete"

	RUN_COMPLETE Event = "ingest:run:complete"
)

// New returns an empty event coordinator. All handlers must be registered before
// the first Dispatch, after which Dispatch is safe for concurrent use.
func New() EventCoordinator {
	return &eventHandler{
		fnHandlers:   make(map[Event][]handlerMethod),
		chanHandlers: make(map[Event][]HandlerChannel),
	}
}

// RegisterHandlerChannel takes an event type and a channel and will send Event messages on
// the channel any time a Dispatch for the provided event occurs.
// This method can be used multiple times for different events on the same channel.
//
// If the channel is BLOCKED when the event bus attempts to send the message on the handler channel,
// then the thread dispatching the event will also be BLOCKED. Buffer the handler channels
// appropriately to avoid stalling ingest workers.
func (handler *eventHandler) RegisterHandlerChannel(handle HandlerChannel, events ...Event) {
	for _, event := range events {
		handler.chanHandlers[event] = append(handler.chanHandlers[event], handle)
	}
}

// RegisterHandlerFunction takes an event type and a handler method which will be
// called with the payload for the event whenever it is dispatched. The handler runs on
// the dispatching goroutine and must return quickly.
func (handler *eventHandler) RegisterHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, false})
}

// RegisterAsyncHandlerFunction is RegisterHandlerFunction, except that the handler
// is invoked inside of its own goroutine.
func (handler *eventHandler) RegisterAsyncHandlerFunction(event Event, handle HandlerMethod) {
	handler.registerHandlerMethod(event, handlerMethod{handle, true})
}

func (handler *eventHandler) registerHandlerMethod(event Event, handle handlerMethod) {
	handler.fnHandlers[event] = append(handler.fnHandlers[event], handle)
}

// Dispatch takes an event type and a payload and dispatches the payload to every
// handler registered for the event type.
// Note that this method WILL block if a synchronous handler function is blocking, or if channel
// handlers are blocked.
func (handler *eventHandler) Dispatch(event Event, payload Payload) {
	if err := validatePayload(event, payload); err != nil {
		log.Emit(logger.ERROR, "Dispatch for event %v FAILED validation: %v\n", event, err)
		return
	}

	for _, handle := range handler.fnHandlers[event] {
		if handle.async {
			go handle.handle(event, payload)
		} else {
			handle.handle(event, payload)
		}
	}

	if handles, ok := handler.chanHandlers[event]; ok {
		payload := HandlerEvent{event, payload}
		for _, handle := range handles {
			handle <- payload
		}
	}
}

// validatePayload ensures that the payload provided is valid for the event specified. An error
// will be returned if the payload is not valid, and the event should not be sent to the registered
// handlers in this case.
func validatePayload(event Event, payload Payload) error {
	var payloadTypeName string
	if t := reflect.TypeOf(payload); t != nil {
		payloadTypeName = t.Name()
	} else {
		payloadTypeName = "Nil"
	}

	switch event {
	case ITEM_STARTED, ITEM_COMPLETE:
		if _, ok := payload.(ItemProgress); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected ItemProgress payload", payloadTypeName, event)
		}

		return nil
	case RUN_COMPLETE:
		if _, ok := payload.(uuid.UUID); !ok {
			return fmt.Errorf("illegal payload (type %s) for %s event. Expected uuid.UUID payload", payloadTypeName, event)
		}

		return nil
	}

	return errors.New("event type not recognized for validation")
}

// Discard is a dispatcher which drops every event.
type Discard struct{}

func (Discard) Dispatch(Event, Payload) {}
