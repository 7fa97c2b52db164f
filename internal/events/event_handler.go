package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// EventHandler maps lifecycle actions onto configured subjects.
type EventHandler struct {
	bus    Bus
	config *EventConfig
	logger *slog.Logger
}

func NewEventHandler(bus Bus, config *EventConfig, logger *slog.Logger) *EventHandler {
	return &EventHandler{bus: bus, config: config, logger: logger}
}

// RaiseProductEvent publishes one lifecycle event. The message id is stable
// per action+product+timestamp so JetStream dedupes broker-side retries.
func (h *EventHandler) RaiseProductEvent(action Action, evt ProductEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("Failed to marshal product event", "action", action, "error", err)
		return err
	}

	var subject string
	switch action {
	case ActionCreated:
		subject = h.config.ProductCreated
	case ActionUpdated:
		subject = h.config.ProductUpdated
	case ActionDeleted:
		subject = h.config.ProductDeleted
	default:
		return fmt.Errorf("unsupported product event action: %s", action)
	}

	msgID := fmt.Sprintf("product.%s.%d.%d", action, evt.ProductID, evt.At.UnixNano())
	return h.bus.Publish(subject, data, msgID)
}
