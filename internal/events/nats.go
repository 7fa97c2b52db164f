package events

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

var _ Bus = NATSBus{}

type NATSBus struct {
	nats *nats.Conn
	js   nats.JetStreamContext
	log  *slog.Logger
}

func NewNATSBus(addr string, logger *slog.Logger) (*NATSBus, error) {
	opts := []nats.Option{
		nats.Name("marketplace-api"),

		// Reconnect forever; the default gives up after 60 attempts.
		nats.MaxReconnects(-1),
		nats.ReconnectWait(3 * time.Second),

		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected, buffering messages", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),

		// A permanently closed connection (bad auth etc.) is unrecoverable in
		// process; exit and let the orchestrator restart us.
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Error("NATS connection closed permanently, exiting")
			os.Exit(1)
		}),
	}

	nc, err := nats.Connect(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	return &NATSBus{nats: nc, js: js, log: logger}, nil
}

func (b NATSBus) Publish(subject string, data []byte, msgID string) error {
	b.log.Debug("Publishing event", "subject", subject, "data_size", len(data))

	_, err := b.js.Publish(subject, data, nats.MsgId(msgID))
	return err
}

// Drain lets in-flight messages finish before closing; preferred on shutdown.
func (b NATSBus) Drain() error {
	b.log.Info("Draining event bus")
	return b.nats.Drain()
}
