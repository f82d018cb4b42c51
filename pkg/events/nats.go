package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATS - publishes tap events on a NATS subject
type NATS struct {
	conn    *nats.Conn
	subject string
}

// DialNATS - connects to url, token may be empty
func DialNATS(url, token, subject string) (*NATS, error) {
	opts := []nats.Option{
		nats.Name("rfid-tap reader"),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to NATS at %s: %w", url, err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

// Publish - fire and forget, the client library buffers while reconnecting
func (n *NATS) Publish(_ context.Context, event *TapEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}

// Close - drains pending messages and closes the connection
func (n *NATS) Close() error {
	return n.conn.Drain()
}
