package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types published on lab.events.<type>.
const (
	TypeCreated    = "created"
	TypeReady      = "ready"
	TypeTerminated = "terminated"
)

// Event is the JSON payload published to NATS for a lab lifecycle transition.
type Event struct {
	Type      string    `json:"type"`
	LabID     string    `json:"labId"`
	LabType   string    `json:"labType,omitempty"`
	AccessURL string    `json:"accessUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes lab lifecycle events to NATS JetStream. Publishing is
// best-effort: failures are logged and never fail the lifecycle operation.
// A nil *Publisher is valid and publishes nothing.
type Publisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the lab event stream exists.
func NewPublisher(natsURL string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     "LAB_EVENTS",
		Subjects: []string{"lab.events.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		// Stream may already exist, that's OK
		log.Printf("events: stream setup: %v", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Publish emits one lifecycle event.
func (p *Publisher) Publish(ev Event) {
	if p == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("events: marshal %s event for %s: %v", ev.Type, ev.LabID, err)
		return
	}
	if _, err := p.js.Publish("lab.events."+ev.Type, payload); err != nil {
		log.Printf("events: publish %s event for %s: %v", ev.Type, ev.LabID, err)
	}
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}
