package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"membitpulse/internal/config"
)

// Event names
const (
	TrendsRefreshed = "trends.refreshed"
	AgentCompleted  = "agent.completed"
)

// Envelope wraps every published payload
type Envelope struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// NATSPublisher publishes events to NATS subjects "<prefix>.<event>"
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect opens a NATS connection for publishing
func Connect(cfg config.NATSConfig) (*NATSPublisher, error) {
	options := []nats.Option{
		nats.Name("membitpulse"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("[Events] NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("[Events] NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("[Events] NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: nc, prefix: cfg.SubjectPrefix}, nil
}

// Publish sends payload as event. Delivery is fire-and-forget.
func (p *NATSPublisher) Publish(_ context.Context, event string, payload any) error {
	data, err := Encode(event, payload)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(p.prefix, event), data)
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Subject builds the NATS subject for an event
func Subject(prefix, event string) string {
	if prefix == "" {
		return event
	}
	return prefix + "." + event
}

// Encode wraps payload in an Envelope and serializes it
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{
		ID:   uuid.NewString(),
		Type: event,
		Time: time.Now().UTC(),
		Data: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event, err)
	}
	return data, nil
}

// Nop discards all events. Used when NATS is not configured.
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, string, any) error { return nil }
