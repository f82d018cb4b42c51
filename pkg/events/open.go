package events

import (
	"context"
	"fmt"

	"github.com/igorvan/rfid-tap/pkg/config"
)

// Open - publisher selected by cfg.Driver
func Open(ctx context.Context, cfg config.Events) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return Nop{}, nil
	case "pubsub":
		p, err := DialPubSub(ctx, cfg.ProjectID, cfg.TopicID)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "nats":
		n, err := DialNATS(cfg.NatsURL, cfg.NatsToken, cfg.Subject)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
