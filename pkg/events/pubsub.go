package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSub - publishes tap events to a Google Cloud Pub/Sub topic
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	owned  bool
}

// DialPubSub - creates its own client for projectID; Close releases it
func DialPubSub(ctx context.Context, projectID, topicID string) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cannot create pubsub client: %w", err)
	}
	p := NewPubSub(client, topicID)
	p.owned = true
	return p, nil
}

// NewPubSub - publisher over an existing client, the caller keeps ownership of the client
func NewPubSub(client *pubsub.Client, topicID string) *PubSub {
	return &PubSub{client: client, topic: client.Topic(topicID)}
}

// Publish - sends the event and waits for the server acknowledgement
func (p *PubSub) Publish(ctx context.Context, event *TapEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"uid": event.UID},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("cannot publish tap event %s: %w", event.ID, err)
	}
	return nil
}

// Close - flushes pending messages
func (p *PubSub) Close() error {
	p.topic.Stop()
	if p.owned {
		return p.client.Close()
	}
	return nil
}
