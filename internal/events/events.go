package events

import (
	"os"
	"time"
)

// ProductEvent is published after a successful create/update/delete so
// downstream consumers (search indexer, analytics) can react. The product
// snapshot is the state after the mutation; for deletes, the removed row.
type ProductEvent struct {
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	At        time.Time `json:"at"`
	TraceID   string    `json:"trace_id"`
}

type EventConfig struct {
	ProductCreated string
	ProductUpdated string
	ProductDeleted string
}

func NewEventConfig() *EventConfig {
	return &EventConfig{
		ProductCreated: getSubject("EVENT_PRODUCT_CREATED", "products.created"),
		ProductUpdated: getSubject("EVENT_PRODUCT_UPDATED", "products.updated"),
		ProductDeleted: getSubject("EVENT_PRODUCT_DELETED", "products.deleted"),
	}
}

func getSubject(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
